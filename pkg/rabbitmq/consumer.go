/**
 * @description
 * Consumer owns the broker connection for a single durable queue. It consumes with
 * prefetch 1 and manual acknowledgement, hands each delivery to a handler one at a
 * time, and reconnects with a bounded number of fixed-delay attempts when the
 * connection or channel closes.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: AMQP 0-9-1 client.
 * - github.com/sirupsen/logrus: structured logging.
 *
 * @notes
 * The handler returns true to ack and false to nack without requeue. A panicking
 * handler is treated as false. Stop waits for the in-flight delivery before closing
 * the channel and then the connection.
 */

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("rabbitmq consumer is not connected")
	ErrStopped      = errors.New("rabbitmq consumer is stopped")
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = 5 * time.Second
	dialTimeout                 = 10 * time.Second
)

// State is the connection state of a Consumer.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// MessageHandler processes one delivery body. true acks, false nacks without requeue.
type MessageHandler func(ctx context.Context, body []byte) bool

// Channel is the subset of *amqp.Channel the consumer uses.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Connection is the subset of *amqp.Connection the consumer uses.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(rawURL string) (Connection, error) {
	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp.DialConfig(rawURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// ConsumerConfig describes the queue to consume and the reconnect policy.
// Exchange is optional; when set the queue is bound to it with RoutingKey.
type ConsumerConfig struct {
	URL                  string
	Queue                string
	Exchange             string
	RoutingKey           string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}

// Status is a point-in-time snapshot of the consumer.
type Status struct {
	IsConnected          bool   `json:"isConnected"`
	QueueName            string `json:"queueName"`
	ReconnectAttempts    int    `json:"reconnectAttempts"`
	MaxReconnectAttempts int    `json:"maxReconnectAttempts"`
	ConnectionStatus     string `json:"connectionStatus"`
	ChannelStatus        string `json:"channelStatus"`
	State                State  `json:"state"`
}

type session struct {
	conn       Connection
	ch         Channel
	deliveries <-chan amqp.Delivery
	connClosed chan *amqp.Error
	chClosed   chan *amqp.Error
}

// Consumer consumes a single queue with reconnect support.
type Consumer struct {
	url                  string
	queue                string
	exchange             string
	routingKey           string
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	handler              MessageHandler
	dial                 Dialer
	log                  *logrus.Entry

	mu                sync.RWMutex
	state             State
	conn              Connection
	ch                Channel
	reconnectAttempts int
	started           bool

	// running is set once the run goroutine owns done.
	running bool

	handlerCtx context.Context
	stopCh     chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewConsumer validates cfg and returns a consumer in the disconnected state.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger logrus.FieldLogger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("rabbitmq: message handler is required")
	}
	cleanURL, err := sanitizeAMQPURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	queue := strings.TrimSpace(cfg.Queue)
	if queue == "" {
		return nil, errors.New("rabbitmq: queue name is required")
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	routingKey := cfg.RoutingKey
	if cfg.Exchange != "" && routingKey == "" {
		routingKey = queue
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Consumer{
		url:                  cleanURL,
		queue:                queue,
		exchange:             cfg.Exchange,
		routingKey:           routingKey,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		reconnectDelay:       cfg.ReconnectDelay,
		handler:              handler,
		dial:                 dialAMQP,
		log:                  logger.WithFields(logrus.Fields{"component": "rabbitmq_consumer", "queue": queue}),
		state:                StateDisconnected,
		stopCh:               make(chan struct{}),
		done:                 make(chan struct{}),
	}, nil
}

// Start connects and begins consuming in a background goroutine. Handlers receive
// a context derived from ctx that is not cancelled when ctx is.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return errors.New("rabbitmq: consumer already started")
	}
	c.started = true
	c.handlerCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	sess, err := c.connect()
	if err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		// Stop ran during the dial and will not wait on done.
		_ = sess.ch.Close()
		_ = sess.conn.Close()
		return ErrStopped
	}
	c.running = true
	c.mu.Unlock()

	go c.run(sess)
	c.log.Info("consumer started")
	return nil
}

// connect opens a connection and channel and starts consuming.
func (c *Consumer) connect() (*session, error) {
	c.setState(StateConnecting)

	conn, err := c.dial(c.url)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	sess, err := c.setupSession(conn)
	if err != nil {
		_ = conn.Close()
		c.setState(StateDisconnected)
		return nil, err
	}

	c.mu.Lock()
	c.conn = sess.conn
	c.ch = sess.ch
	if c.state != StateStopped {
		c.state = StateConnected
	}
	c.mu.Unlock()
	return sess, nil
}

func (c *Consumer) setupSession(conn Connection) (*session, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*session, error) {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fail("set prefetch", err)
	}
	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if c.exchange != "" {
		if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
			return fail("declare exchange", err)
		}
		if err := ch.QueueBind(q.Name, c.routingKey, c.exchange, false, nil); err != nil {
			return fail("bind queue", err)
		}
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}

	return &session{
		conn:       conn,
		ch:         ch,
		deliveries: deliveries,
		connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		chClosed:   ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (c *Consumer) run(sess *session) {
	defer close(c.done)

	for {
		var closeErr *amqp.Error
		select {
		case <-c.stopCh:
			return
		case d, ok := <-sess.deliveries:
			if ok {
				if c.stopping() {
					// Arrived after Stop; return it to the queue untouched.
					if err := d.Nack(false, true); err != nil {
						c.log.WithError(err).Warn("failed to requeue delivery during shutdown")
					}
					return
				}
				c.processMessage(d)
				continue
			}
		case closeErr = <-sess.connClosed:
		case closeErr = <-sess.chClosed:
		}

		if c.stopping() {
			return
		}
		entry := c.log
		if closeErr != nil {
			entry = entry.WithFields(logrus.Fields{"code": closeErr.Code, "reason": closeErr.Reason})
		}
		entry.Warn("broker connection lost")
		c.closeSession(sess)
		c.setState(StateDisconnected)

		next, ok := c.attemptReconnect()
		if !ok {
			return
		}
		sess = next
	}
}

// attemptReconnect retries connect with a fixed delay. The counter resets on success.
func (c *Consumer) attemptReconnect() (*session, bool) {
	for {
		c.mu.Lock()
		if c.reconnectAttempts >= c.maxReconnectAttempts {
			attempts := c.reconnectAttempts
			c.state = StateDisconnected
			c.mu.Unlock()
			c.log.WithFields(logrus.Fields{
				"severity": "fatal",
				"attempts": attempts,
			}).Error("max reconnect attempts reached; manual intervention required")
			return nil, false
		}
		c.reconnectAttempts++
		attempt := c.reconnectAttempts
		c.state = StateReconnecting
		c.mu.Unlock()

		c.log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": c.maxReconnectAttempts,
			"delay":        c.reconnectDelay.String(),
		}).Info("scheduling reconnect")

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-c.stopCh:
			timer.Stop()
			return nil, false
		case <-timer.C:
		}

		sess, err := c.connect()
		if err != nil {
			c.log.WithError(err).WithField("attempt", attempt).Warn("reconnect attempt failed")
			continue
		}

		c.mu.Lock()
		c.reconnectAttempts = 0
		c.mu.Unlock()
		c.log.WithField("attempt", attempt).Info("reconnected to broker")
		return sess, true
	}
}

// processMessage acks or nacks the delivery exactly once.
func (c *Consumer) processMessage(d amqp.Delivery) {
	entry := c.log.WithField("delivery_tag", d.DeliveryTag)
	if c.handle(d) {
		if err := d.Ack(false); err != nil {
			entry.WithError(err).Error("failed to ack delivery")
		}
		return
	}
	entry.Warn("handler rejected delivery; dropping without requeue")
	if err := d.Nack(false, false); err != nil {
		entry.WithError(err).Error("failed to nack delivery")
	}
}

func (c *Consumer) handle(d amqp.Delivery) (ack bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", fmt.Sprint(r)).Error("message handler panicked")
			ack = false
		}
	}()
	return c.handler(c.handlerCtx, d.Body)
}

// Stop halts consumption, waits for the in-flight delivery, then closes the
// channel and the connection. Safe to call more than once.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		running := c.running
		c.state = StateStopped
		c.mu.Unlock()

		close(c.stopCh)
		if running {
			<-c.done
		}

		c.mu.Lock()
		ch, conn := c.ch, c.conn
		c.mu.Unlock()
		if ch != nil && !ch.IsClosed() {
			if err := ch.Close(); err != nil {
				c.log.WithError(err).Warn("failed to close channel")
			}
		}
		if conn != nil && !conn.IsClosed() {
			if err := conn.Close(); err != nil {
				c.log.WithError(err).Warn("failed to close connection")
			}
		}
		c.log.Info("consumer stopped")
	})
}

// Status returns a snapshot of the consumer state.
func (c *Consumer) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	connStatus, chStatus := "not_initialized", "not_initialized"
	if c.conn != nil {
		connStatus = closedOrOpen(c.conn.IsClosed())
	}
	if c.ch != nil {
		chStatus = closedOrOpen(c.ch.IsClosed())
	}
	return Status{
		IsConnected:          c.state == StateConnected && connStatus == "open" && chStatus == "open",
		QueueName:            c.queue,
		ReconnectAttempts:    c.reconnectAttempts,
		MaxReconnectAttempts: c.maxReconnectAttempts,
		ConnectionStatus:     connStatus,
		ChannelStatus:        chStatus,
		State:                c.state,
	}
}

// IsConnected reports whether the consumer currently holds an open channel.
func (c *Consumer) IsConnected() bool {
	return c.Status().IsConnected
}

// ReconnectAttempts reports the attempts made since the last successful connect.
func (c *Consumer) ReconnectAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectAttempts
}

func closedOrOpen(closed bool) string {
	if closed {
		return "closed"
	}
	return "open"
}

func (c *Consumer) setState(s State) {
	c.mu.Lock()
	if c.state != StateStopped {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Consumer) stopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Consumer) closeSession(sess *session) {
	if sess.ch != nil && !sess.ch.IsClosed() {
		_ = sess.ch.Close()
	}
	if sess.conn != nil && !sess.conn.IsClosed() {
		_ = sess.conn.Close()
	}
}
