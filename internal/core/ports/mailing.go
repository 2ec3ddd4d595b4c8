package ports

import (
	"context"
	"strings"
)

// MailingListContact is what gets forwarded to the external mailing list.
type MailingListContact struct {
	Email  string
	Source string
	Tags   []string
}

// JoinedTags flattens the tag set into the comma separated form providers store.
func (c MailingListContact) JoinedTags() string {
	return strings.Join(c.Tags, ",")
}

// MailingListProvider adds a contact to an external mailing list.
type MailingListProvider interface {
	Name() string
	AddSubscriber(ctx context.Context, contact MailingListContact) error
}

// MailingListNotifier dispatches contacts to a provider without reporting back.
// Failures are logged by the implementation and never reach the caller.
type MailingListNotifier interface {
	Notify(ctx context.Context, contact MailingListContact)
}
