package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	errConnectionReset = errors.New("connection reset by peer")
	errLoginRejected   = fmt.Errorf("%w: NO LOGIN failed", ErrAuth)
)

// fakeMessage is one message of a fakeMailbox.
type fakeMessage struct {
	uid     uint32
	subject string
	seen    bool
}

// fakeMailbox is an in-memory IMAP account. It implements Dialer; every
// session it hands out shares the same messages.
type fakeMailbox struct {
	mu       sync.Mutex
	messages []*fakeMessage

	dialErr  error
	loginErr error
	fetchErr map[uint32]error
	markErr  map[uint32]error

	dials   int
	logouts int
	fetched []uint32
	marked  []uint32
}

func newFakeMailbox(subjects ...string) *fakeMailbox {
	m := &fakeMailbox{
		fetchErr: map[uint32]error{},
		markErr:  map[uint32]error{},
	}
	for i, s := range subjects {
		m.messages = append(m.messages, &fakeMessage{uid: uint32(i + 1), subject: s})
	}
	return m
}

func (m *fakeMailbox) Dial(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dials++
	if m.dialErr != nil {
		return nil, m.dialErr
	}
	return &fakeSession{box: m}, nil
}

func (m *fakeMailbox) seen(uid uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.messages {
		if msg.uid == uid {
			return msg.seen
		}
	}
	return false
}

func (m *fakeMailbox) dialCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dials
}

func (m *fakeMailbox) setMarkErr(uid uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.markErr, uid)
		return
	}
	m.markErr[uid] = err
}

func (m *fakeMailbox) setFetchErr(uid uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.fetchErr, uid)
		return
	}
	m.fetchErr[uid] = err
}

func (m *fakeMailbox) setDialErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dialErr = err
}

type fakeSession struct {
	box      *fakeMailbox
	loggedIn bool
}

func (s *fakeSession) Login(username, password string) error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	if s.box.loginErr != nil {
		return s.box.loginErr
	}
	s.loggedIn = true
	return nil
}

func (s *fakeSession) Folders() ([]string, error) {
	return []string{"INBOX", "Sent"}, nil
}

func (s *fakeSession) SelectInbox() error {
	if !s.loggedIn {
		return errors.New("not authenticated")
	}
	return nil
}

func (s *fakeSession) SearchUnseen() ([]uint32, error) {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	var uids []uint32
	for _, msg := range s.box.messages {
		if !msg.seen {
			uids = append(uids, msg.uid)
		}
	}
	return uids, nil
}

func (s *fakeSession) FetchSubject(uid uint32) (string, error) {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	s.box.fetched = append(s.box.fetched, uid)
	if err := s.box.fetchErr[uid]; err != nil {
		return "", err
	}
	for _, msg := range s.box.messages {
		if msg.uid == uid {
			return msg.subject, nil
		}
	}
	return "", errors.New("no such message")
}

func (s *fakeSession) MarkSeen(uid uint32) error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	if err := s.box.markErr[uid]; err != nil {
		return err
	}
	for _, msg := range s.box.messages {
		if msg.uid == uid {
			msg.seen = true
			s.box.marked = append(s.box.marked, uid)
			return nil
		}
	}
	return errors.New("no such message")
}

func (s *fakeSession) Logout() error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	s.box.logouts++
	return nil
}

// memRecorder is an in-memory store.Recorder.
type memRecorder struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (r *memRecorder) RecordIfNew(_ context.Context, subject string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return false, r.err
	}
	for _, s := range r.subjects {
		if s == subject {
			return false, nil
		}
	}
	r.subjects = append(r.subjects, subject)
	return true, nil
}

func (r *memRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.subjects...)
}
