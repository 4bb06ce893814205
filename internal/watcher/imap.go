package watcher

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/textproto"
)

// Connection security modes accepted by IMAPDialer.
const (
	SecuritySSL      = "ssl"
	SecurityStartTLS = "starttls"
)

// IMAPConfig describes how to reach the IMAP server.
type IMAPConfig struct {
	Server   string
	Port     int
	Security string        // SecuritySSL (default) or SecurityStartTLS
	Timeout  time.Duration // per-command timeout, zero means none
}

// IMAPDialer connects to a real IMAP server.
type IMAPDialer struct {
	cfg IMAPConfig
}

// NewIMAPDialer returns a Dialer for cfg.
func NewIMAPDialer(cfg IMAPConfig) *IMAPDialer {
	return &IMAPDialer{cfg: cfg}
}

// Dial establishes a secure connection to the IMAP server. The returned
// session terminates its connection as soon as ctx is done, which unblocks any
// command in flight.
func (d *IMAPDialer) Dial(ctx context.Context) (Session, error) {
	address := net.JoinHostPort(d.cfg.Server, strconv.Itoa(d.cfg.Port))

	// Prepare TLS configuration to secure the connection
	tlsConfig := &tls.Config{
		ServerName: d.cfg.Server, // ensures correct certificate validation
	}

	netDialer := &net.Dialer{Timeout: d.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)

	if strings.EqualFold(d.cfg.Security, SecurityStartTLS) {
		conn, err = netDialer.DialContext(ctx, "tcp", address)
	} else {
		tlsDialer := &tls.Dialer{NetDialer: netDialer, Config: tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server %s: %w", address, err)
	}

	c, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to greet IMAP server %s: %w", address, err)
	}
	c.Timeout = d.cfg.Timeout

	if strings.EqualFold(d.cfg.Security, SecurityStartTLS) {
		if err := c.StartTLS(tlsConfig); err != nil {
			_ = c.Terminate()
			return nil, fmt.Errorf("failed to start TLS with %s: %w", address, err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		slog.Debug("Context done, terminating IMAP connection", "address", address)
		_ = c.Terminate()
	})

	return &imapSession{c: c, stop: stop}, nil
}

// imapSession implements Session with go-imap's v1 client.
type imapSession struct {
	c    *client.Client
	stop func() bool
}

func (s *imapSession) Login(username, password string) error {
	err := s.c.Login(username, password)
	if err == nil {
		return nil
	}

	closed := false
	select {
	case <-s.c.LoggedOut():
		closed = true
	default:
	}

	return loginError(err, closed)
}

// loginError tells a NO/BAD reply to LOGIN apart from a connection that broke
// while the command was in flight. go-imap reports both as plain errors, but
// only a transport failure tears down the client.
func loginError(err error, connClosed bool) error {
	var netErr net.Error
	if connClosed || errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("connection lost during login: %w", err)
	}

	return fmt.Errorf("%w: %w", ErrAuth, err)
}

func (s *imapSession) Folders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var names []string
	for m := range mailboxes {
		names = append(names, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return names, nil
}

func (s *imapSession) SelectInbox() error {
	// false = read-write, required for storing \Seen
	if _, err := s.c.Select(imap.InboxName, false); err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}
	return nil
}

func (s *imapSession) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	return uids, nil
}

// FetchSubject fetches BODY.PEEK[HEADER.FIELDS (SUBJECT)] so the server does
// not set \Seen before the subject has been recorded.
func (s *imapSession) FetchSubject(uid uint32) (string, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    []string{"Subject"},
		},
		Peek: true,
	}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, messages)
	}()

	var body imap.Literal
	for msg := range messages {
		if msg.Uid != uid {
			continue
		}
		body = msg.GetBody(section)
		if body == nil {
			// Some servers echo the field name in a different case.
			for _, literal := range msg.Body {
				body = literal
				break
			}
		}
	}

	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}

	if body == nil {
		return "", fmt.Errorf("no header data returned for message %d", uid)
	}

	header, err := textproto.ReadHeader(bufio.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse header of message %d: %w", uid, err)
	}

	if !header.Has("Subject") {
		slog.Debug("Message has no Subject header", "uid", uid)
	}

	return header.Get("Subject"), nil
}

func (s *imapSession) MarkSeen(uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true) // true = silent update
	flags := []interface{}{imap.SeenFlag}

	if err := s.c.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message %d as \\Seen: %w", uid, err)
	}

	return nil
}

func (s *imapSession) Logout() error {
	s.stop()

	if err := s.c.Logout(); err != nil {
		_ = s.c.Terminate()
		return err
	}
	return nil
}
