package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Envelope is one message as the server received it: the transport-level
// sender and recipient list plus the raw serialized body. It exists so
// tests can assert on the envelope independently of the To/Cc/Bcc
// headers inside the body.
type Envelope struct {
	From       string
	Recipients []string
	Body       string
}

// messageData includes the envelope and created timestamp for an email
// message, allowing us to inspect messages before/after a timestamp for
// correctness.
type messageData struct {
	created  time.Time
	envelope Envelope
}

// Backend implements smtp.Backend. It's a thin authentication wrapper
// for an InMemoryEmailStore.
type Backend struct {
	store *InMemoryEmailStore

	// requiredPassword, when non-empty, is the only password Login
	// accepts. Empty means any non-empty username/password pair is
	// fine, since we don't want to couple this with specific test
	// configurations.
	requiredPassword string
}

// Login implements smtp.Backend.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username == "" || password == "" {
		return nil, errors.New("no username or password provided")
	}
	if be.requiredPassword != "" && password != be.requiredPassword {
		return nil, errors.New("wrong password")
	}
	return be.store, nil
}

// AnonymousLogin implements smtp.Backend. Not supported since we want
// to enforce AUTH.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

// InMemoryEmailStore retains message envelopes in memory for comparison
// against a test's expected output. Implements smtp.Session. Designed
// to be goroutine safe since we don't know how many goroutines will be
// hitting the server at once, though the pending envelope state assumes
// one in-flight message at a time, which holds for these tests.
type InMemoryEmailStore struct {
	mu       *sync.Mutex
	messages []messageData
	pending  Envelope
}

// Reset implements smtp.Session.
func (es *InMemoryEmailStore) Reset() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.pending = Envelope{}
}

// Logout implements smtp.Session. No-op here.
func (es *InMemoryEmailStore) Logout() error { return nil }

// Mail implements smtp.Session. Records the envelope sender.
func (es *InMemoryEmailStore) Mail(from string, _ smtp.MailOptions) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.pending = Envelope{From: from}
	return nil
}

// Rcpt implements smtp.Session. Records one envelope recipient.
func (es *InMemoryEmailStore) Rcpt(to string) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.pending.Recipients = append(es.pending.Recipients, to)
	return nil
}

// Data implements smtp.Session. Stores the message in memory for
// retrieval at the end of the test.
func (es *InMemoryEmailStore) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 100 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	str := &strings.Builder{}
	if _, err := str.Write(buf); err != nil {
		return err
	}
	es.saveEmail(str.String())
	return nil
}

// saveEmail stores the pending envelope with its body and a timestamp
// created just prior to saving.
func (es *InMemoryEmailStore) saveEmail(bod string) {
	es.mu.Lock()
	defer es.mu.Unlock()

	env := es.pending
	env.Body = bod
	es.messages = append(es.messages, messageData{
		created:  time.Now(),
		envelope: env,
	})
	es.pending = Envelope{}
}

// InProcessServer is an SMTP server that runs in the same process as
// the test suite, letting us inspect sent messages. You must initialize
// this via NewInProcessServer.
type InProcessServer struct {
	*smtp.Server
	// We're also using this as an smtp.Session, i.e., the Backend of
	// the *smtp.Server. This is kind of gross, but allows us to access
	// the *InMemoryEmailStore. Otherwise, we're stuck with
	// *smtp.Server.Backend, which just leaves us with the Backend
	// interface methods.
	*InMemoryEmailStore

	backend  *Backend
	listener net.Listener
}

// NewInProcessServer creates an InProcessServer on a random local port,
// including configuring its SMTP server to store incoming messages in
// memory. Must provide the paths to the key and cert used for TLS. The
// cert must be a root cert.
func NewInProcessServer(keypath string, certpath string) *InProcessServer {
	is := &InMemoryEmailStore{
		mu:       &sync.Mutex{},
		messages: []messageData{},
	}
	be := &Backend{store: is}

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = false // need AUTH here
	srv.AuthDisabled = false      // need AUTH here
	// Strict enforces <address> syntax in messages.
	srv.Strict = true

	cert, err := tls.LoadX509KeyPair(certpath, keypath)

	// No way to carry on without a cert, so we panic. We're in a test
	// suite, so this should be fine.
	if err != nil {
		panic(err)
	}

	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	srv.Addr = l.Addr().String()

	return &InProcessServer{
		Server:             srv,
		InMemoryEmailStore: is,
		backend:            be,
		listener:           l,
	}
}

// RequirePassword makes Login accept only the given password. Call
// before Start.
func (is *InProcessServer) RequirePassword(pw string) {
	is.backend.requiredPassword = pw
}

// Start serves plaintext connections that the client upgrades to TLS
// via STARTTLS. Blocking.
func (is *InProcessServer) Start() error {
	return is.Server.Serve(is.listener)
}

// StartImplicitTLS serves connections that negotiate TLS immediately,
// the port 465 convention. Blocking.
func (is *InProcessServer) StartImplicitTLS() error {
	return is.Server.Serve(tls.NewListener(is.listener, is.Server.TLSConfig))
}

// Close shuts down the test server daemon. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
}

// RetrieveEmails returns a slice of all message bodies (as strings)
// sent after epoch nanoseconds t.
func (es *InMemoryEmailStore) RetrieveEmails(t int64) ([]string, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	r := make([]string, 0, len(es.messages))
	for _, m := range es.messages {
		if m.created.UnixNano() >= t {
			r = append(r, m.envelope.Body)
		}
	}
	return r, nil
}

// RetrieveEnvelopes returns all envelopes received after epoch
// nanoseconds t.
func (es *InMemoryEmailStore) RetrieveEnvelopes(t int64) ([]Envelope, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	r := make([]Envelope, 0, len(es.messages))
	for _, m := range es.messages {
		if m.created.UnixNano() >= t {
			r = append(r, m.envelope)
		}
	}
	return r, nil
}

// Address returns the host:port of the test SMTP server.
func (is *InProcessServer) Address() string {
	return is.listener.Addr().String()
}
