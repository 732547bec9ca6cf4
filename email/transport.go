package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Well-known SMTP submission ports. Any other port is rejected up front
// rather than producing an obscure failure mid-session.
const (
	portImplicitTLS = 465
	portSTARTTLS    = 587
)

// tlsMode selects how the connection to the SMTP server is secured.
type tlsMode int

const (
	// modeImplicitTLS negotiates TLS immediately on connect (port 465).
	modeImplicitTLS tlsMode = iota
	// modeSTARTTLS dials in plaintext, greets the server, upgrades via
	// STARTTLS and greets again (port 587).
	modeSTARTTLS
)

// modeForPort maps a configured port to a transport mode. Ports other
// than 465 and 587 are an unsupported configuration.
func modeForPort(port int) (tlsMode, error) {
	switch port {
	case portImplicitTLS:
		return modeImplicitTLS, nil
	case portSTARTTLS:
		return modeSTARTTLS, nil
	default:
		return 0, newError(
			ReasonUnsupportedPort,
			fmt.Sprintf("port %d is not supported, use %d (implicit TLS) or %d (STARTTLS)",
				port, portImplicitTLS, portSTARTTLS),
			nil,
		)
	}
}

// Session is an authenticated SMTP session ready to accept one or more
// messages. Implementations must be safe to Close after Quit.
type Session interface {
	// Transmit hands the serialized message to the server for delivery
	// to the envelope recipients.
	Transmit(from string, recipients []string, msg []byte) error
	// Quit ends the session cleanly.
	Quit() error
	// Close tears down the connection. Safe to call on all exit paths.
	Close() error
}

// DialFunc opens an authenticated Session against server:port. Tests
// substitute a fake; production code uses the package default.
type DialFunc func(server string, port int, from, password string, tlsConfig *tls.Config) (Session, error)

// openSession is the default DialFunc. It selects the transport mode
// from the port, establishes the connection and authenticates with
// PLAIN auth.
func openSession(server string, port int, from, password string, tlsConfig *tls.Config) (Session, error) {
	mode, err := modeForPort(port)
	if err != nil {
		return nil, err
	}
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: server}
	}
	addr := net.JoinHostPort(server, strconv.Itoa(port))
	return dialAndAuth(addr, mode, from, password, tlsConfig)
}

// dialAndAuth establishes the connection for the given mode and
// authenticates with PLAIN auth. Split from openSession so tests can
// target a server on an arbitrary port.
func dialAndAuth(addr string, mode tlsMode, from, password string, tlsConfig *tls.Config) (Session, error) {
	c, err := dialSMTP(addr, mode, tlsConfig)
	if err != nil {
		return nil, err
	}
	if err := c.Auth(sasl.NewPlainClient("", from, password)); err != nil {
		// The connection is healthy, the credentials are not.
		c.Close()
		return nil, newError(ReasonAuth, fmt.Sprintf("server %s rejected credentials for %s", addr, from), err)
	}
	return &smtpSession{client: c}, nil
}

// dialSMTP establishes the SMTP connection for the given mode, leaving
// authentication to the caller.
func dialSMTP(addr string, mode tlsMode, tlsConfig *tls.Config) (*smtp.Client, error) {
	switch mode {
	case modeImplicitTLS:
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, newError(ReasonTransport, fmt.Sprintf("can't open a TLS connection to %s", addr), err)
		}
		c, err := smtp.NewClient(conn, tlsConfig.ServerName)
		if err != nil {
			conn.Close()
			return nil, newError(ReasonTransport, fmt.Sprintf("no SMTP greeting from %s", addr), err)
		}
		return c, nil
	case modeSTARTTLS:
		c, err := smtp.Dial(addr)
		if err != nil {
			return nil, newError(ReasonTransport, fmt.Sprintf("can't connect to %s", addr), err)
		}
		// StartTLS greets the server, issues STARTTLS and greets again
		// over the upgraded connection.
		if err := c.StartTLS(tlsConfig); err != nil {
			c.Close()
			return nil, newError(ReasonTransport, fmt.Sprintf("can't upgrade the connection to %s via STARTTLS", addr), err)
		}
		return c, nil
	}
	// modeForPort only produces the two modes above.
	return nil, newError(ReasonUnsupportedPort, fmt.Sprintf("unknown transport mode %d", mode), nil)
}

// smtpSession wraps an authenticated go-smtp client.
type smtpSession struct {
	client *smtp.Client
}

func (s *smtpSession) Transmit(from string, recipients []string, msg []byte) error {
	if err := s.client.Mail(from, nil); err != nil {
		return newError(ReasonTransport, fmt.Sprintf("server refused sender %s", from), err)
	}
	for _, r := range recipients {
		if err := s.client.Rcpt(r); err != nil {
			return newError(ReasonTransport, fmt.Sprintf("server refused recipient %s", r), err)
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return newError(ReasonTransport, "server refused message data", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return newError(ReasonTransport, "writing message data", err)
	}
	if err := w.Close(); err != nil {
		return newError(ReasonTransport, "server rejected message data", err)
	}
	return nil
}

func (s *smtpSession) Quit() error {
	if err := s.client.Quit(); err != nil {
		return newError(ReasonTransport, "ending the session", err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	return s.client.Close()
}
