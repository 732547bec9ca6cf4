package email

// email builds and dispatches email messages over SMTP. It resolves
// its configuration from explicit arguments, a layered profile store
// and an encrypted secret store, composes a multipart MIME document
// from header fields, a plain-text body and file attachments, and
// transmits it over implicit TLS (port 465) or STARTTLS (port 587).
// It is a library surface only; it owns no CLI.
