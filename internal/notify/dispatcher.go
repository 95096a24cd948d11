package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bhadrakali/chit-ledger/internal/queue"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"github.com/bhadrakali/chit-ledger/pkg/prom"
	"github.com/bhadrakali/chit-ledger/pkg/worker"
)

// Sender delivers one composed message. An error leaves the queue entry
// unacked for retry.
type Sender interface {
	Send(ctx context.Context, msg *OutboundMessage) error
}

// LogSender is the default delivery path: operators forward the wa.me link
// by hand, so delivery here just records the message.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg *OutboundMessage) error {
	logger.Info("outbound message ready",
		"kind", string(msg.Kind),
		"memberId", msg.MemberID,
		"monthNo", msg.MonthNo,
		"waLink", msg.WaLink)
	return nil
}

// WebhookSender posts the message to an external automation endpoint
// (a WhatsApp Business bridge or similar).
type WebhookSender struct {
	URL     string
	Timeout time.Duration
	client  *fasthttp.Client
	once    sync.Once
}

func (s *WebhookSender) Send(ctx context.Context, msg *OutboundMessage) error {
	s.once.Do(func() {
		if s.Timeout == 0 {
			s.Timeout = 10 * time.Second
		}
		s.client = &fasthttp.Client{
			ReadTimeout:  s.Timeout,
			WriteTimeout: s.Timeout,
		}
	})

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.Timeout)
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.StatusCode() >= fasthttp.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// DispatcherConfig sizes the worker pool draining the outbox.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
}

// Dispatcher drains the outbox stream into a worker pool that hands each
// message to the sender.
type Dispatcher struct {
	queue  *queue.Queue
	sender Sender
	pool   *worker.WorkerManager
	wg     sync.WaitGroup
}

func NewDispatcher(q *queue.Queue, sender Sender, config DispatcherConfig) *Dispatcher {
	if config.Workers == 0 {
		config.Workers = 8
	}
	if config.BufferSize == 0 {
		config.BufferSize = 1024
	}
	return &Dispatcher{
		queue:  q,
		sender: sender,
		pool:   worker.NewWorkerManager(config.BufferSize, config.Workers, nil),
	}
}

// Start begins consuming. Send failures propagate as handler errors so the
// queue's retry and dead-letter machinery applies.
func (d *Dispatcher) Start() error {
	d.pool.SetWorker(d.deliver)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.pool.Start(); err != nil {
			logger.Info("dispatcher worker pool stopped", "reason", err)
		}
	}()

	return d.queue.Consume(d.handle)
}

type deliveryJob struct {
	msg  *OutboundMessage
	done chan error
}

func (d *Dispatcher) handle(ctx context.Context, qmsg *queue.Message) error {
	var msg OutboundMessage
	if err := json.Unmarshal(qmsg.Data, &msg); err != nil {
		logger.Error("dropping undecodable outbox entry", "id", qmsg.ID, "error", err)
		prom.IncNotifyMessage("unknown", "dropped")
		return nil
	}

	job := &deliveryJob{msg: &msg, done: make(chan error, 1)}
	d.pool.Enqueue(job)

	select {
	case err := <-job.done:
		if err != nil {
			prom.IncNotifyMessage(string(msg.Kind), "send_failed")
			return err
		}
		prom.IncNotifyMessage(string(msg.Kind), "sent")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(_ int, job interface{}) {
	j, ok := job.(*deliveryJob)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	j.done <- d.sender.Send(ctx, j.msg)
}

// Stop halts consumption and the pool.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	err := d.queue.Stop(timeout)
	d.pool.Exit()
	return err
}
