package common

import (
	"encoding/json"
	"ets/src/config"
	"ets/src/lib"
	"ets/src/types"
	"log"
	"os"
	"sync"
)

// Dispatcher runs side effects off the request thread. Publish never
// blocks the caller: the fact is queued for a worker, and when the
// queue is saturated the fact is dropped with a log line rather than
// stalling a settlement response. Delivery is best effort; the order
// and payment records are already durable by the time a fact is
// published.
type Dispatcher struct {
	facts   chan any
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDispatcher(workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		facts:   make(chan any, buffer),
		workers: workers,
	}
	return d
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for fact := range d.facts {
				d.handle(fact)
			}
		}()
	}
}

// Publish queues a fact. Returns false when the fact was dropped.
func (d *Dispatcher) Publish(fact any) bool {
	select {
	case d.facts <- fact:
		return true
	default:
		log.Printf("[dispatch] Queue full, dropping fact %T\n", fact)
		return false
	}
}

// Stop drains the queue and waits for the workers to finish.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.facts)
	})
	d.wg.Wait()
}

func (d *Dispatcher) handle(fact any) {
	switch f := fact.(type) {
	case *types.PaymentSucceededFact:
		mirrorFact("payment.succeeded", f)
		HandlePaymentSucceeded(f)
	case *types.OrderCancelledFact:
		mirrorFact("order.cancelled", f)
		HandleOrderCancelled(f)
	case *types.EventViewedFact:
		HandleEventViewed(f)
	default:
		log.Printf("[dispatch] Unknown fact type %T\n", fact)
	}
}

var dispatcher *Dispatcher

func StartDispatcher() *Dispatcher {
	if dispatcher != nil {
		return dispatcher
	}
	d := NewDispatcher(4, 256)
	d.Start()
	dispatcher = d
	return d
}

// ReplaceDispatcher swaps the package dispatcher, for tests.
func ReplaceDispatcher(d *Dispatcher) {
	dispatcher = d
}

func Publish(fact any) {
	if dispatcher == nil {
		log.Printf("[dispatch] No dispatcher running, dropping fact %T\n", fact)
		return
	}
	dispatcher.Publish(fact)
}

// mirrorFact copies a fact onto the message bus for downstream
// analytics consumers: Kafka locally, SQS on AWS environments. Skipped
// entirely when no broker is configured.
func mirrorFact(kind string, fact any) {
	payload := map[string]any{
		"source": kind,
		"fact":   fact,
	}
	apiEnv := config.API_ENV
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		b, _ := json.Marshal(payload)
		if err := lib.SQSProduceMessage("TicketingFacts", string(b)); err != nil {
			log.Printf("[dispatch] Error mirroring fact to queue: %s\n", err.Error())
		}
		return
	}
	if os.Getenv("KAFKA_BROKER") == "" {
		return
	}
	if err := lib.KafkaProduceMessage("ticketing-facts-producer", "ticketing-facts", payload); err != nil {
		log.Printf("[dispatch] Error mirroring fact to topic: %s\n", err.Error())
	}
}
