package simulation

import (
	"container/list"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// EventKind identifies what an event does when processed
type EventKind string

const (
	TASK_ARRIVAL   EventKind = "task_arrival"
	TASK_EXECUTE   EventKind = "task_execute"
	TASK_COMPLETED EventKind = "task_completed"
	TASK_FAILED    EventKind = "task_failed"
	TASK_REJECTED  EventKind = "task_rejected" // recorded only, never queued
)

// Event is a scheduled simulation step
type Event struct {
	Time float64
	Kind EventKind
	Task *models.Task
	Node int
}

// EventQueue orders events by time, first in first out among equal times
type EventQueue struct {
	events *list.List
}

// NewEventQueue creates an empty queue
func NewEventQueue() *EventQueue {
	return &EventQueue{events: list.New()}
}

// Len returns the number of pending events
func (q *EventQueue) Len() int {
	return q.events.Len()
}

// Push inserts the event after every event scheduled at or before its time
func (q *EventQueue) Push(ev Event) {
	for e := q.events.Back(); e != nil; e = e.Prev() {
		if e.Value.(Event).Time <= ev.Time {
			q.events.InsertAfter(ev, e)
			return
		}
	}
	q.events.PushFront(ev)
}

// PushFront inserts the event ahead of every other event scheduled at its time
func (q *EventQueue) PushFront(ev Event) {
	for e := q.events.Front(); e != nil; e = e.Next() {
		if e.Value.(Event).Time >= ev.Time {
			q.events.InsertBefore(ev, e)
			return
		}
	}
	q.events.PushBack(ev)
}

// Pop removes the earliest event
func (q *EventQueue) Pop() (Event, bool) {
	front := q.events.Front()
	if front == nil {
		return Event{}, false
	}
	return q.events.Remove(front).(Event), true
}

// Peek returns the earliest event without removing it
func (q *EventQueue) Peek() (Event, bool) {
	front := q.events.Front()
	if front == nil {
		return Event{}, false
	}
	return front.Value.(Event), true
}
