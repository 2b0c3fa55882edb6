package appender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/layout"
)

const (
	// DefaultSMTPPort is used when smtpPort is not set.
	DefaultSMTPPort = 25

	// DefaultSubject is the mail subject when none is configured.
	DefaultSubject = "[Bootique SMTP appender] log entry"

	// DefaultCharset is the body charset when charsetEncoding is not set.
	DefaultCharset = "UTF-8"

	smtpQueueSize   = 64
	smtpSendTimeout = 30 * time.Second
)

// Message is one mail.
type Message struct {
	From        string
	To          []string
	Subject     string
	ContentType string
	Body        []byte
}

// MailSender delivers mail.
type MailSender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPFactory creates SMTP appenders.
type SMTPFactory struct {
	Config *config.SMTPAppenderConfig
}

func (f *SMTPFactory) CreateAppender(ctx Context, defaultLogFormat string) (interfaces.Appender, error) {
	cfg := f.Config
	name := cfg.DisplayName()
	if len(cfg.To) == 0 {
		return nil, errors.NewConfigError(name, "to", errors.ErrNoRecipients)
	}

	subjectSource := cfg.Subject
	if subjectSource == "" {
		subjectSource = DefaultSubject
	}
	subject, err := layout.CompileInlinePattern(subjectSource)
	if err != nil {
		return nil, errors.NewConstructionError(name, "subject", err)
	}
	enc, err := createLayout(&cfg.AppenderCommon, ctx, defaultLogFormat)
	if err != nil {
		return nil, err
	}
	b, err := newBase(&cfg.AppenderCommon, ctx)
	if err != nil {
		return nil, errors.NewConfigError(name, "filters", err)
	}

	newSender := ctx.NewMailSender
	if newSender == nil {
		newSender = NewSMTPSender
	}
	a := &SMTPAppender{
		base:        b,
		encoder:     enc,
		subject:     subject,
		sender:      newSender(cfg),
		from:        cfg.From,
		to:          append([]string(nil), cfg.To...),
		contentType: contentType(enc, cfg.CharsetEncoding),
		start:       ctx.StartTime,
	}
	if err := a.Start(); err != nil {
		return nil, errors.NewConstructionError(name, "smtp", err)
	}
	return a, nil
}

func contentType(enc zapcore.Encoder, charset string) string {
	if charset == "" {
		charset = DefaultCharset
	}
	return mime.FormatMediaType(layout.MediaType(enc), map[string]string{"charset": charset})
}

// SMTPAppender mails every event at error level or above. Mails are sent by a
// background goroutine; a failed delivery is recorded and not retried.
type SMTPAppender struct {
	*base

	encoder     zapcore.Encoder
	subject     *layout.Pattern
	sender      MailSender
	from        string
	to          []string
	contentType string
	start       time.Time

	mu     sync.RWMutex
	queue  chan Message
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CallerData reports whether the body or the subject renders the caller.
func (a *SMTPAppender) CallerData() bool {
	return layout.NeedsCallerData(a.encoder) || a.subject.UsesCallerData()
}

// triggers is the evaluator deciding which events are mailed.
func triggers(ent zapcore.Entry) bool {
	return ent.Level >= zapcore.ErrorLevel
}

func (a *SMTPAppender) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started.Load() {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.queue = make(chan Message, smtpQueueSize)
	a.cancel = cancel
	a.wg.Add(1)
	go a.worker(ctx, a.queue)
	a.started.Store(true)
	return nil
}

func (a *SMTPAppender) worker(ctx context.Context, queue <-chan Message) {
	defer a.wg.Done()
	for msg := range queue {
		sendCtx, cancel := context.WithTimeout(ctx, smtpSendTimeout)
		err := a.sender.Send(sendCtx, msg)
		cancel()
		if err != nil {
			a.metrics.AppendFailed(a.name)
			a.status.Errorf(a.label(), "sending mail to %s failed: %v", strings.Join(msg.To, ","), err)
		}
	}
}

// Stop sends what is queued and waits for the worker.
func (a *SMTPAppender) Stop() error {
	a.mu.Lock()
	if !a.started.Swap(false) {
		a.mu.Unlock()
		return nil
	}
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	a.cancel()
	return nil
}

func (a *SMTPAppender) Append(ent zapcore.Entry, fields []zapcore.Field) error {
	if !triggers(ent) {
		return nil
	}
	if !a.accept(ent) {
		return nil
	}
	msg, err := a.message(ent, fields)
	if err != nil {
		return a.failed(err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.started.Load() {
		return a.failed(errAppenderStopped)
	}
	select {
	case a.queue <- msg:
		a.metrics.EventAppended(a.name, ent.Level)
		return nil
	default:
		a.status.Warnf(a.label(), "mail queue is full, dropping %q", ent.Message)
		return a.failed(errQueueFull)
	}
}

func (a *SMTPAppender) message(ent zapcore.Entry, fields []zapcore.Field) (Message, error) {
	buf, err := a.encoder.EncodeEntry(ent, fields)
	if err != nil {
		return Message{}, err
	}
	defer buf.Free()

	var body bytes.Buffer
	framed, isFramed := a.encoder.(layout.Framed)
	if isFramed {
		body.Write(framed.Header())
	}
	body.Write(buf.Bytes())
	if isFramed {
		body.Write(framed.Footer())
	}

	subject := strings.TrimSpace(strings.SplitN(a.subject.Format(ent, fields, a.start), "\n", 2)[0])
	return Message{
		From:        a.from,
		To:          a.to,
		Subject:     subject,
		ContentType: a.contentType,
		Body:        body.Bytes(),
	}, nil
}

func (a *SMTPAppender) Sync() error {
	return nil
}

var (
	errAppenderStopped = fmt.Errorf("appender is stopped")
	errQueueFull       = fmt.Errorf("queue is full")
)

// SMTPSender delivers mail with net/smtp.
type SMTPSender struct {
	Host      string
	Port      int
	Username  string
	Password  string
	StartTLS  bool
	SSL       bool
	Localhost string
}

// NewSMTPSender creates the net/smtp transport for cfg.
func NewSMTPSender(cfg *config.SMTPAppenderConfig) MailSender {
	port := cfg.SMTPPort
	if port == 0 {
		port = DefaultSMTPPort
	}
	host := cfg.SMTPHost
	if host == "" {
		host = "localhost"
	}
	return &SMTPSender{
		Host:      host,
		Port:      port,
		Username:  cfg.Username,
		Password:  cfg.Password.Value(),
		StartTLS:  cfg.StartTLS,
		SSL:       cfg.SSL,
		Localhost: cfg.Localhost,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	var (
		conn net.Conn
		err  error
	)
	if s.SSL {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.Host}}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if s.Localhost != "" {
		if err := c.Hello(s.Localhost); err != nil {
			return err
		}
	}
	if s.StartTLS && !s.SSL {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return err
		}
	}
	if s.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(msg.From); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(FormatMessage(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// FormatMessage renders msg as an RFC 5322 message.
func FormatMessage(msg Message) []byte {
	var b bytes.Buffer
	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", msg.ContentType)
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.Write(bytes.ReplaceAll(bytes.ReplaceAll(msg.Body, []byte("\r\n"), []byte("\n")), []byte("\n"), []byte("\r\n")))
	return b.Bytes()
}
