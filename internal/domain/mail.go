package domain

// Mail is one outbound message. To holds a single recipient: batching
// several recipients into one message would leak subscriptions.
type Mail struct {
	To      string
	Subject string
	Body    string
}
