package core

import "context"

// Change feed collections.
const (
	FeedMembers     = "members"
	FeedPayments    = "payments"
	FeedDonations   = "donations"
	FeedSpecialists = "specialists"
	FeedEvents      = "events"
	FeedQueries     = "queries"
)

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeFeed broadcasts record mutations so list views can stay current
// without manual refresh. Publish failures must not fail the originating write.
type ChangeFeed interface {
	Publish(ctx context.Context, collection string, op ChangeOp, record interface{}) error
}
