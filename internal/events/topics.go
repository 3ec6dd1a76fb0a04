package events

// Topics emitted by the order workflow.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicPromoRedeemed      = "promo.redeemed"
)
