package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationOrderPlaced   NotificationType = "order_placed"
	NotificationOrderStatus   NotificationType = "order_status"
	NotificationPaymentUpdate NotificationType = "payment_update"
	NotificationRefundIssued  NotificationType = "refund_issued"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderPlaced,
	NotificationOrderStatus,
	NotificationPaymentUpdate,
	NotificationRefundIssued,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}
