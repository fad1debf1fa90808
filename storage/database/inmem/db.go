package inmemdb

import (
	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	"github.com/eacna/portal/core/query"
	"github.com/eacna/portal/core/specialist"
)

// DB holds one table per collection.
type DB struct {
	members     *Table[member.Member]
	payments    *Table[payment.Payment]
	donations   *Table[payment.Donation]
	specialists *Table[specialist.Application]
	events      *Table[event.Event]
	queries     *Table[query.Query]
}

func NewDB() *DB {
	return &DB{
		members:     newTable(func(mbr member.Member) string { return mbr.ID }),
		payments:    newTable(func(pmt payment.Payment) string { return pmt.ID }),
		donations:   newTable(func(don payment.Donation) string { return don.ID }),
		specialists: newTable(func(app specialist.Application) string { return app.ID }),
		events:      newTable(func(evt event.Event) string { return evt.ID }),
		queries:     newTable(func(qry query.Query) string { return qry.ID }),
	}
}

// Collection accessors expose tables as live list sources.

func (db *DB) Members() *Table[member.Member]              { return db.members }
func (db *DB) Payments() *Table[payment.Payment]           { return db.payments }
func (db *DB) Donations() *Table[payment.Donation]         { return db.donations }
func (db *DB) Specialists() *Table[specialist.Application] { return db.specialists }
func (db *DB) Events() *Table[event.Event]                 { return db.events }
func (db *DB) Queries() *Table[query.Query]                { return db.queries }
