package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"tutorbook/internal/logger"
	"tutorbook/internal/metrics"
)

const (
	queueKey   = "emails"
	failedKey  = "emails:failed"
	maxTries   = 3
	popTimeout = 2 * time.Second
)

// Sender is what the rest of the service needs from email delivery.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type EmailJob struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	redis      *redis.Client
	from       string
	fromName   string
	smtpHost   string
	smtpPort   string
	smtpUser   string
	smtpPass   string
	sendMail   sendMailFunc
	retryDelay time.Duration
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:       fromEmail,
		fromName:   fromName,
		smtpHost:   smtpHost,
		smtpPort:   smtpPort,
		smtpUser:   smtpUser,
		smtpPass:   smtpPass,
		sendMail:   smtp.SendMail,
		retryDelay: 5 * time.Second,
	}
}

// Send queues an HTML email. Delivery happens in the worker started by Start.
func (s *Service) Send(ctx context.Context, to, subject, html string) error {
	job := EmailJob{
		To:      to,
		Subject: subject,
		HTML:    html,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "error", err)
		return fmt.Errorf("queue email: %w", err)
	}

	logger.Debug("email queued", "to", to, "subject", subject)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
			s.QueueLength(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return
	}

	job.Tries++
	if err := s.deliver(job); err != nil {
		logger.Warn("email delivery failed", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			if s.retryDelay > 0 {
				time.Sleep(s.retryDelay)
			}
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			metrics.RecordEmail("retry")
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail("success")
	logger.Info("email sent", "to", job.To, "attempt", job.Tries)
}

func (s *Service) deliver(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	message += "\r\n" + job.HTML

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return s.sendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	metrics.RecordEmail("failed")
	logger.Error("email moved to failed queue", "to", job.To, "tries", job.Tries)
}

// QueueLength reports pending jobs and refreshes the queue gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
