package watcher

import "context"

// Session is one authenticated-or-not connection to the mailbox. It lives for
// a single poll cycle. Implementations need not be safe for concurrent use.
type Session interface {
	// Login authenticates with the account identifier and app token. An error
	// wraps ErrAuth only when the server rejected the credentials; a
	// connection lost during LOGIN is reported as is.
	Login(username, password string) error
	// Folders lists the mailbox names the server exposes.
	Folders() ([]string, error)
	// SelectInbox opens INBOX read-write so flags can be stored.
	SelectInbox() error
	// SearchUnseen returns the UIDs of messages without \Seen, in the order
	// the server reported them.
	SearchUnseen() ([]uint32, error)
	// FetchSubject returns the raw Subject header of uid without setting
	// \Seen. A message without the header yields "".
	FetchSubject(uid uint32) (string, error)
	// MarkSeen adds \Seen to uid.
	MarkSeen(uid uint32) error
	// Logout ends the session and releases the connection.
	Logout() error
}

// Dialer opens sessions. Cancelling ctx after Dial returns must abort any
// blocking call on the session.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
