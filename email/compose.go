package email

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// maxAttachmentSize caps a single attachment. Most relays reject
// messages well below this anyway, so fail before dialing out.
const maxAttachmentSize int64 = 25 * units.MiB

// composed is one fully built message, valid for a single send.
// Recipient headers are stamped at send time, everything else at
// composition time.
type composed struct {
	header      mail.Header
	body        string
	attachments []attachment
	// numAttached is bookkeeping only, it is not part of the document.
	numAttached int
}

type attachment struct {
	filename string
	content  []byte
}

// compose builds a message from the client's current field values. It
// is a pure function of those values: every call rebuilds from scratch
// and nothing is cached between sends. Attachment files are read here
// so that an unreadable path fails before any network activity.
func (c *Client) compose() (*composed, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetMessageID(fmt.Sprintf("%s@%s", uuid.NewString(), domainOf(c.From)))
	h.Set("From", c.From)
	h.SetSubject(c.Subject)

	m := &composed{
		header: h,
		body:   c.Body,
	}

	for _, path := range c.Attachments {
		info, err := os.Stat(path)
		if err != nil {
			return nil, newError(ReasonAttachment, fmt.Sprintf("can't read attachment %s", path), err)
		}
		if info.Size() > maxAttachmentSize {
			return nil, newError(
				ReasonAttachment,
				fmt.Sprintf("attachment %s is %s, the limit is %s",
					path,
					units.HumanSize(float64(info.Size())),
					units.HumanSize(float64(maxAttachmentSize))),
				nil,
			)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, newError(ReasonAttachment, fmt.Sprintf("can't read attachment %s", path), err)
		}
		name := filepath.Base(path)
		if c.AttachFullPath {
			name = path
		}
		m.attachments = append(m.attachments, attachment{
			filename: name,
			content:  content,
		})
		m.numAttached++
	}

	return m, nil
}

// setRecipientHeaders stamps the To/Cc/Bcc headers for display. Each
// header is the comma-and-space joined address list; empty roles get no
// header at all.
func (m *composed) setRecipientHeaders(to, cc, bcc []string) {
	if len(to) > 0 {
		m.header.Set("To", strings.Join(to, ", "))
	}
	if len(cc) > 0 {
		m.header.Set("Cc", strings.Join(cc, ", "))
	}
	if len(bcc) > 0 {
		m.header.Set("Bcc", strings.Join(bcc, ", "))
	}
}

// writeTo serializes the message as a MIME multipart document. An empty
// body yields a document with no inline part rather than an empty text
// part.
func (m *composed) writeTo(w io.Writer) error {
	mw, err := mail.CreateWriter(w, m.header)
	if err != nil {
		return err
	}

	if m.body != "" {
		tw, err := mw.CreateInline()
		if err != nil {
			return err
		}
		var th mail.InlineHeader
		th.Set("Content-Type", "text/plain; charset=utf-8")
		pw, err := tw.CreatePart(th)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(pw, m.body); err != nil {
			return err
		}
		if err := pw.Close(); err != nil {
			return err
		}
		if err := tw.Close(); err != nil {
			return err
		}
	}

	for _, a := range m.attachments {
		var ah mail.AttachmentHeader
		ah.Set("Content-Type", "application/octet-stream")
		ah.SetFilename(a.filename)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return err
		}
		if _, err := aw.Write(a.content); err != nil {
			return err
		}
		if err := aw.Close(); err != nil {
			return err
		}
	}

	return mw.Close()
}

// Bytes returns the serialized message.
func (m *composed) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// domainOf returns the domain portion of an email address, or the
// address itself if it has no @.
func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return address
}
