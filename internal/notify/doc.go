// Package notify implements the concrete notification channels consumed by
// the dispatcher: SMTP email, LINE Messaging API push, and Slack-style or
// generic JSON webhooks. Each channel owns its own delivery timeout.
package notify
