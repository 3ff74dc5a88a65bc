package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core"
)

type consoleService struct {
	from       mail.Address
	subjPrefix string
	logger     core.Logger
	out        *log.Logger // nil disables output
	wg         sync.WaitGroup
}

var _ core.EmailService = (*consoleService)(nil)

func fromAddress(conf *core.Config) mail.Address {
	if addr, err := mail.ParseAddress(conf.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail}
}

// NewConsoleService prints emails to out instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger, out *log.Logger) core.EmailService {
	return &consoleService{
		from:       fromAddress(conf),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		out:        out,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.wg.Add(1)
		go func(msg *core.EmailMessage) {
			defer svc.wg.Done()
			svc.sendMessage(msg)
		}(msg)
	}
}

func (svc *consoleService) Wait() { svc.wg.Wait() }

func (svc *consoleService) sendMessage(msg *core.EmailMessage) bool {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return false
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return false
	}
	body, err := svc.format(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("formatting email: %v", err), err)
		return false
	}
	if svc.out != nil {
		svc.out.Println(body)
	}
	return true
}

func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err := altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart body")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock sends synchronously and keeps every sent message.
type ConsoleServiceMock struct {
	consoleService
	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			from:       fromAddress(conf),
			subjPrefix: "[" + conf.AppName + "] ",
			logger:     logger,
		},
	}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		if svc.sendMessage(msg) {
			svc.mu.Lock()
			svc.SentMessages = append(svc.SentMessages, *msg)
			svc.mu.Unlock()
		}
	}
}

func (svc *ConsoleServiceMock) Sent() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]core.EmailMessage, len(svc.SentMessages))
	copy(sent, svc.SentMessages)
	return sent
}
