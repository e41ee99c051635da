package domain

import "time"

// Reply is a message on a ticket. Owned by the ticket (cascade on delete).
type Reply struct {
	ID        string
	TicketID  string
	UserID    *string
	CreatedAt time.Time
}

// Attachment is a file linked to a ticket and optionally to a reply.
type Attachment struct {
	ID         string
	TicketID   string
	ReplyID    *string
	UploadedBy *string
	CreatedAt  time.Time
}

// Rating is a customer satisfaction score for a resolved ticket, 1 to 5.
type Rating struct {
	ID        string
	TicketID  string
	Rating    int
	CreatedAt time.Time
}

// ResponseMetric records how long the first response on a ticket took.
// DurationMinutes must be positive; zero-duration rows are invalid.
type ResponseMetric struct {
	ID              string
	TicketID        string
	MetricType      string
	DurationMinutes int64
	CreatedAt       time.Time
}

// MetricFirstResponse is the metric type written by the synchronizer.
const MetricFirstResponse = "first_response"
