package common

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestTaskProcessor(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	uut, err := GetNewTaskProcessorInstance("ut-task-processor", 4)
	assert.Nil(err)

	type taskA struct {
		value string
	}
	type taskB struct {
		value int
	}

	// Case 0: submission before the execution map is set fails at processing
	assert.NotNil(uut.ProcessNewTaskParam(taskA{value: "skipped"}))

	rxA := make(chan string, 4)
	rxB := make(chan int, 4)
	assert.Nil(uut.SetTaskExecutionMap(map[reflect.Type]TaskHandler{
		reflect.TypeOf(taskA{}): func(param interface{}) error {
			task, ok := param.(taskA)
			assert.True(ok)
			rxA <- task.value
			return nil
		},
	}))
	assert.Nil(uut.AddToTaskExecutionMap(
		reflect.TypeOf(taskB{}), func(param interface{}) error {
			task, ok := param.(taskB)
			assert.True(ok)
			rxB <- task.value
			return nil
		},
	))

	assert.Nil(uut.StartEventLoop(&wg))

	// Case 1: tasks are routed by parameter type
	assert.Nil(uut.Submit(taskA{value: "hello"}))
	assert.Nil(uut.Submit(taskB{value: 31}))
	{
		ctxt, cancel := context.WithTimeout(utCtxt, time.Second)
		defer cancel()
		select {
		case <-ctxt.Done():
			assert.False(true)
		case msg, ok := <-rxA:
			assert.True(ok)
			assert.Equal("hello", msg)
		}
	}
	{
		ctxt, cancel := context.WithTimeout(utCtxt, time.Second)
		defer cancel()
		select {
		case <-ctxt.Done():
			assert.False(true)
		case msg, ok := <-rxB:
			assert.True(ok)
			assert.Equal(31, msg)
		}
	}

	// Case 2: unknown parameter type is rejected at processing
	type taskC struct{}
	assert.NotNil(uut.ProcessNewTaskParam(taskC{}))

	assert.Nil(uut.StopEventLoop())
}
