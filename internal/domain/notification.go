package domain

// NotificationDetail describes one reminder emitted by
// fn_check_and_notify_pending_obligations.
type NotificationDetail struct {
	ObligationID     int64  `json:"obligation_id"`
	CompanyName      string `json:"company_name"`
	DocumentName     string `json:"document_name"`
	DaysUntilDue     int    `json:"days_until_due"`
	DueDate          string `json:"due_date"`
	NotificationType string `json:"notification_type"`
}

// NotificationCheckResult is the single row returned by the notification check.
type NotificationCheckResult struct {
	NotificationsCreated int                  `json:"notifications_created"`
	ObligationsChecked   int                  `json:"obligations_checked"`
	Details              []NotificationDetail `json:"details"`
}

type NotificationSummary struct {
	NotificationsCreated int `json:"notifications_created"`
	ObligationsChecked   int `json:"obligations_checked"`
	NotificationsSent    int `json:"notifications_sent"`
}

func SummarizeNotificationCheck(result NotificationCheckResult) NotificationSummary {
	return NotificationSummary{
		NotificationsCreated: result.NotificationsCreated,
		ObligationsChecked:   result.ObligationsChecked,
		NotificationsSent:    len(result.Details),
	}
}
