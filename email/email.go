package email

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/messages-dev/messages/dispatch"
	"github.com/messages-dev/messages/profile"
	"github.com/messages-dev/messages/storage"
)

// configSection is the profile section holding email settings.
const configSection = "email"

// wellKnownServers maps common sender domains to their SMTP submission
// endpoint, consulted when no server is configured or stored.
var wellKnownServers = map[string]string{
	"gmail.com": "smtp.gmail.com",
	"yahoo.com": "smtp.yahoo.com",
}

// Options carries the constructor arguments for a Client. Zero values
// mean "not provided": absent fields are resolved from the named
// profile and, for the server and port, derived from the sender
// address.
type Options struct {
	// From is the authenticated sender identity. Required here or in
	// the profile.
	From string

	// To, Cc and Bcc are the recipient sets per role. A single
	// recipient is a one-element slice.
	To  []string
	Cc  []string
	Bcc []string

	// Server and Port locate the SMTP endpoint. Port selects the
	// transport mode: 465 for implicit TLS, 587 for STARTTLS.
	Server string
	Port   int

	// Password for the sender account. If empty, the profile's secret
	// store is consulted, then the interactive prompt.
	Password string

	Subject string
	Body    string

	// Attachments lists filesystem paths to attach.
	Attachments []string

	// AttachFullPath advertises each attachment's full local path as
	// its filename instead of the base name. Off by default since the
	// full path leaks local filesystem structure to recipients.
	AttachFullPath bool

	// Profile names a separate account profile. Empty means the
	// default profile.
	Profile string

	// Save writes the resolved sender, server and port back to the
	// profile, and the resolved password to its secret store.
	Save bool

	// Store is the profile store to resolve against. Defaults to the
	// file store under the user config directory.
	Store profile.Store

	// Prompt reads a password when nothing else resolves one. Defaults
	// to a non-echoing terminal prompt.
	Prompt profile.PromptFunc

	// Queue receives the client on SendAsync. Optional.
	Queue Queue

	// Journal, if set, receives one entry per successful send in
	// addition to the in-memory history. Optional.
	Journal storage.KeyValue

	// Dial overrides the SMTP session factory. Tests use this to
	// substitute a fake transport.
	Dial DialFunc

	// TLSConfig overrides the TLS client configuration used when
	// dialing. Mostly useful against servers with self-signed
	// certificates.
	TLSConfig *tls.Config
}

// Queue accepts send tasks for deferred execution. Satisfied by
// *dispatch.Queue.
type Queue interface {
	Enqueue(dispatch.Task)
}

// Client builds and sends email messages over SMTP. Fields may be
// mutated between sends; each send rebuilds the message from the
// current values. A Client is not safe for concurrent Send calls.
type Client struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Server      string
	Port        int
	Password    string
	Subject     string
	Body        string
	Attachments []string

	// AttachFullPath preserves full attachment paths as advertised
	// filenames. See Options.AttachFullPath.
	AttachFullPath bool

	queue     Queue
	journal   storage.KeyValue
	dial      DialFunc
	tlsConfig *tls.Config
	history   []string
}

// New resolves configuration and returns a ready-to-send Client.
//
// Each of from/server/port resolves as: explicit argument, then the
// stored profile value, then a derived default (the server falls back
// to "smtp." plus the sender's domain, the port to 465). The password
// resolves as: explicit argument, then the profile's encrypted secret
// store, then the interactive prompt. The profile session persists on
// every exit path, including failures partway through resolution.
func New(opts Options) (*Client, error) {
	store := opts.Store
	if store == nil {
		store = profile.NewFileStore(profile.DefaultDir())
	}
	prompt := opts.Prompt
	if prompt == nil {
		prompt = profile.ReadPassword
	}

	sess, err := store.Open(opts.Profile)
	if err != nil {
		return nil, newError(ReasonConfiguration, fmt.Sprintf("can't open profile %q", opts.Profile), err)
	}
	// Persist the profile even if resolution fails below. There is no
	// rollback of partial writes.
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("profile", opts.Profile).Msg("can't persist the profile")
		}
	}()

	c := &Client{
		To:             opts.To,
		Cc:             opts.Cc,
		Bcc:            opts.Bcc,
		Subject:        opts.Subject,
		Body:           opts.Body,
		Attachments:    opts.Attachments,
		AttachFullPath: opts.AttachFullPath,
		queue:          opts.Queue,
		journal:        opts.Journal,
		dial:           opts.Dial,
		tlsConfig:      opts.TLSConfig,
	}
	if c.dial == nil {
		c.dial = openSession
	}

	c.From = opts.From
	if c.From == "" {
		c.From, _ = sess.Get(configSection, "from")
	}
	if c.From == "" {
		return nil, newError(ReasonConfiguration, "no sender address given and none stored in the profile", nil)
	}

	c.Server = opts.Server
	if c.Server == "" {
		c.Server, _ = sess.Get(configSection, "server")
	}
	if c.Server == "" {
		c.Server = deriveServer(c.From)
	}

	c.Port = opts.Port
	if c.Port == 0 {
		c.Port, _ = sess.GetInt(configSection, "port")
	}
	if c.Port == 0 {
		c.Port = portImplicitTLS
	}

	c.Password = opts.Password
	if c.Password == "" {
		pw, err := sess.Secret(secretKey(opts.Profile))
		if err != nil && !profile.IsSecretNotFound(err) {
			return nil, newError(ReasonConfiguration, "can't read the profile's secret store", err)
		}
		c.Password = pw
	}
	if c.Password == "" {
		pw, err := prompt()
		if err != nil {
			return nil, newError(ReasonPrompt, "no password resolved and the interactive prompt failed", err)
		}
		c.Password = pw
	}

	if opts.Save {
		sess.Set(configSection, "from", c.From)
		sess.Set(configSection, "server", c.Server)
		sess.Set(configSection, "port", c.Port)
		if err := sess.SetSecret(secretKey(opts.Profile), c.Password); err != nil {
			return nil, newError(ReasonConfiguration, "can't save the password to the profile's secret store", err)
		}
	}

	return c, nil
}

// secretKey derives the secret store key for a profile name. The
// default profile's key is "_email".
func secretKey(name string) string {
	return name + "_" + configSection
}

// deriveServer guesses the SMTP server from the sender's domain.
func deriveServer(from string) string {
	domain := domainOf(from)
	if s, ok := wellKnownServers[domain]; ok {
		return s
	}
	return "smtp." + domain
}

// recipients flattens To, Cc and Bcc into the envelope recipient list,
// in role order. Duplicates are not removed.
func (c *Client) recipients() []string {
	r := make([]string, 0, len(c.To)+len(c.Cc)+len(c.Bcc))
	r = append(r, c.To...)
	r = append(r, c.Cc...)
	r = append(r, c.Bcc...)
	return r
}

// Send composes the message from the client's current field values and
// transmits it synchronously. Exactly one history entry is appended on
// success and none on any failure. The SMTP session is released on
// every exit path.
func (c *Client) Send() error {
	msg, err := c.compose()
	if err != nil {
		return err
	}

	rcpts := c.recipients()
	if len(rcpts) == 0 {
		return newError(ReasonConfiguration, "no recipients: to, cc and bcc are all empty", nil)
	}
	msg.setRecipientHeaders(c.To, c.Cc, c.Bcc)

	body, err := msg.Bytes()
	if err != nil {
		return newError(ReasonConfiguration, "can't serialize the message", err)
	}

	sess, err := c.dial(c.Server, c.Port, c.From, c.Password, c.tlsConfig)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Transmit(c.From, rcpts, body); err != nil {
		return err
	}
	if err := sess.Quit(); err != nil {
		return err
	}

	log.Info().
		Str("server", c.Server).
		Int("port", c.Port).
		Str("from", c.From).
		Int("recipients", len(rcpts)).
		Msg("message sent")

	entry := c.String()
	c.history = append(c.history, entry)
	if c.journal != nil {
		key := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
		if err := c.journal.Put(storage.Entry{
			Key:   []byte(key),
			Value: []byte(entry),
		}); err != nil {
			// The message is already delivered; a journal failure is
			// not a send failure.
			log.Warn().Err(err).Msg("can't journal the sent message")
		}
	}
	return nil
}

// SendAsync enqueues the client onto its dispatch queue for a later
// synchronous Send by the queue's worker. Completion, ordering among
// enqueued sends and error reporting are the queue's concern.
func (c *Client) SendAsync() error {
	if c.queue == nil {
		return newError(ReasonConfiguration, "no dispatch queue configured", nil)
	}
	c.queue.Enqueue(c)
	return nil
}

// History returns a copy of the send history: one textual summary per
// successful send, oldest first, scoped to this client's lifetime.
func (c *Client) History() []string {
	h := make([]string, len(c.history))
	copy(h, c.history)
	return h
}

// String summarizes the client for logging and history. The body is
// truncated to its first 40 bytes.
func (c *Client) String() string {
	body := c.Body
	if len(body) > 40 {
		body = body[:40]
	}
	return fmt.Sprintf("Email:"+
		"\n\tServer: %s:%d"+
		"\n\tFrom: %s"+
		"\n\tTo: %s"+
		"\n\tCc: %s"+
		"\n\tBcc: %s"+
		"\n\tSubject: %s"+
		"\n\tBody: %s..."+
		"\n\tAttachments: %s",
		c.Server, c.Port, c.From,
		strings.Join(c.To, ", "),
		strings.Join(c.Cc, ", "),
		strings.Join(c.Bcc, ", "),
		c.Subject, body,
		strings.Join(c.Attachments, ", "),
	)
}
