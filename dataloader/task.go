/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package dataloader

import (
	"fmt"

	"github.com/corvidql/corvid/concurrent/deferred"
)

// Task specifies key for BatchLoader to load data and provides storage to write result on
// completion. A task can be completed only once with either Complete or SetError.
//
// Unlike the poll-based Future this package used previously, a Task settles a Deferred directly:
// every caller of Load/LoadMany for the same key chains onto the same Deferred and there is no
// waker bookkeeping to maintain, since Deferred already tracks its own subscribers.
type Task struct {
	key Key

	// Queue that contains this task; Could be nil if the task is never placed in a queue (e.g.,
	// created by Prime.)
	parent *taskQueue

	// result is the Deferred every caller of Load/LoadMany for this key chains onto.
	result *deferred.Deferred

	resolve func(interface{})
	reject  func(error)

	// completed is set once Complete or SetError has run, purely to give a clearer error message
	// than Deferred's own silent double-resolve guard would.
	completed bool

	// The next task in the list
	next *Task
}

func newTask(parent *taskQueue, key Key) *Task {
	d, resolve, reject := deferred.New()
	return &Task{
		key:     key,
		parent:  parent,
		result:  d,
		resolve: resolve,
		reject:  reject,
	}
}

// newDeferred returns the Deferred that settles with the value (or error) this task loads. Every
// caller asking for the same key's data shares the same Deferred and is notified together when the
// task completes.
func (t *Task) newDeferred() *deferred.Deferred {
	return t.result
}

// Key returns t.key.
func (t *Task) Key() Key {
	return t.key
}

// Complete the task with the given value.
func (t *Task) Complete(value interface{}) error {
	if t.completed {
		return fmt.Errorf("task keyed %+v was already completed", t.key)
	}
	t.completed = true
	t.resolve(value)
	return nil
}

// SetError completes the task with an error value.
func (t *Task) SetError(err error) error {
	if t.completed {
		return fmt.Errorf("task keyed %+v was already completed", t.key)
	}
	t.completed = true
	t.reject(err)
	return nil
}

// Completed returns true if the task has been completed (with either a value or an error.)
func (t *Task) Completed() bool {
	return t.completed
}

//===----------------------------------------------------------------------------------------====//
// TaskIterator
//===----------------------------------------------------------------------------------------====//

// TaskList represents a list of Task's stored in a linked list from begin (included) to the end
// (excluded). It provides an iterator to access the TaskList in the list.
type TaskList struct {
	first *Task
	last  *Task
}

// Begin returns an iterator pointing to the first task in the list.
func (tasks *TaskList) Begin() TaskIterator {
	return TaskIterator{tasks.first}
}

// End returns an iterator refers to the pass-to-the-end task in the list.
func (tasks *TaskList) End() TaskIterator {
	if tasks.last != nil {
		return TaskIterator{tasks.last.next}
	}
	return TaskIterator{nil}
}

// Empty returns true if the TaskList doesn't contain any tasks.
func (tasks *TaskList) Empty() bool {
	return tasks.first == nil
}

// push appends a task at the end of the list. This is an internal method make a task list
// externally immutable.
func (tasks *TaskList) push(task *Task) {
	last := tasks.last
	if last == nil {
		tasks.first = task
	} else {
		last.next = task
	}
	tasks.last = task
}

// TaskIterator is used to access Task in a TaskList.
//
// Example:
//
//	for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
//		task := taskIter.Task
//		...
//	}
type TaskIterator struct {
	// The referring task by this iterator
	*Task
}

// Next returns a TaskIterator that refers to the Task next to the one referred by iter in the list.
// Note that it is an undefined behavior if iter doesn't refer to one of the task in the corresponding
// TaskList.
func (iter TaskIterator) Next() TaskIterator {
	return TaskIterator{iter.Task.next}
}
