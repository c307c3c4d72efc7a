package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads one or more topics through a shared worker pool.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgChan  chan *message
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type message struct {
	topic string
	data  []byte
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "default",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	return &Consumer{
		cfg:      cfg,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		msgChan:  make(chan *message, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}, nil
}

// RegisterHandler registers a handler and creates a reader for its topic.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	c.handlers[topic] = h
	c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     c.cfg.GroupID,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
	})
}

// Start launches reader and worker goroutines; it does not block.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.readLoop(topic, reader)
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.workLoop()
	}
	return nil
}

// Stop drains goroutines and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopChan) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	for _, r := range c.readers {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stopChan
		cancel()
	}()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			log.Printf("kafka: read %s: %v", topic, err)
			select {
			case <-c.stopChan:
				return
			case <-time.After(c.cfg.BackoffMin):
			}
			continue
		}
		select {
		case c.msgChan <- &message{topic: topic, data: m.Value}:
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) workLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case m := <-c.msgChan:
			c.handle(m)
		}
	}
}

// handle runs the topic handler with bounded retries and jittered backoff.
func (c *Consumer) handle(m *message) {
	h, ok := c.handlers[m.topic]
	if !ok {
		return
	}

	backoff := c.cfg.BackoffMin
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := h.Handle(ctx, m.data)
		cancel()
		if err == nil {
			return
		}
		if attempt >= c.cfg.RetryMax {
			log.Printf("kafka: handler %s gave up after %d attempts: %v", m.topic, attempt+1, err)
			return
		}
		select {
		case <-c.stopChan:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
}
