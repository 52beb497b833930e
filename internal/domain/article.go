package domain

import "time"

// Article is a news item fetched from an upstream source. ID holds the fingerprint.
type Article struct {
	ID          string
	Title       string
	URL         string
	Source      string
	Description string
	Body        string
	PublishedAt time.Time
}

// Document is the rendered report handed to the delivery transport.
type Document struct {
	Subject string
	HTML    string
	Text    string
}
