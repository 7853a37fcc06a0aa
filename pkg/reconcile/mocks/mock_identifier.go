// Package mocks holds testify mocks of the reconcile collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mgio/mgio-go/pkg/reconcile"
)

// NewMockIdentifier creates a MockIdentifier whose expectations are asserted
// when the test ends.
func NewMockIdentifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIdentifier {
	m := &MockIdentifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockIdentifier is a mock reconcile.Identifier.
type MockIdentifier struct {
	mock.Mock
}

// MockIdentifier_Expecter sets typed expectations.
type MockIdentifier_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockIdentifier) EXPECT() *MockIdentifier_Expecter {
	return &MockIdentifier_Expecter{mock: &_m.Mock}
}

// BeginIdentify implements reconcile.Identifier.
func (_m *MockIdentifier) BeginIdentify() error {
	ret := _m.Called()
	if fn, ok := ret.Get(0).(func() error); ok {
		return fn()
	}
	return ret.Error(0)
}

// MockIdentifier_BeginIdentify_Call is an expectation on BeginIdentify.
type MockIdentifier_BeginIdentify_Call struct {
	*mock.Call
}

// BeginIdentify expects a BeginIdentify call.
func (_e *MockIdentifier_Expecter) BeginIdentify() *MockIdentifier_BeginIdentify_Call {
	return &MockIdentifier_BeginIdentify_Call{Call: _e.mock.On("BeginIdentify")}
}

// Return sets the returned error.
func (_c *MockIdentifier_BeginIdentify_Call) Return(err error) *MockIdentifier_BeginIdentify_Call {
	_c.Call.Return(err)
	return _c
}

// RegisterPair implements reconcile.Identifier.
func (_m *MockIdentifier) RegisterPair(local reconcile.Replica, peer int) error {
	ret := _m.Called(local, peer)
	if fn, ok := ret.Get(0).(func(reconcile.Replica, int) error); ok {
		return fn(local, peer)
	}
	return ret.Error(0)
}

// MockIdentifier_RegisterPair_Call is an expectation on RegisterPair.
type MockIdentifier_RegisterPair_Call struct {
	*mock.Call
}

// RegisterPair expects a RegisterPair call.
func (_e *MockIdentifier_Expecter) RegisterPair(local interface{}, peer interface{}) *MockIdentifier_RegisterPair_Call {
	return &MockIdentifier_RegisterPair_Call{Call: _e.mock.On("RegisterPair", local, peer)}
}

// Run calls fn with the arguments of every matching call.
func (_c *MockIdentifier_RegisterPair_Call) Run(fn func(local reconcile.Replica, peer int)) *MockIdentifier_RegisterPair_Call {
	_c.Call.Run(func(args mock.Arguments) {
		fn(args.Get(0).(reconcile.Replica), args.Int(1))
	})
	return _c
}

// Return sets the returned error.
func (_c *MockIdentifier_RegisterPair_Call) Return(err error) *MockIdentifier_RegisterPair_Call {
	_c.Call.Return(err)
	return _c
}

// EndIdentify implements reconcile.Identifier.
func (_m *MockIdentifier) EndIdentify(ctx context.Context) ([]reconcile.Class, error) {
	ret := _m.Called(ctx)
	if fn, ok := ret.Get(0).(func(context.Context) ([]reconcile.Class, error)); ok {
		return fn(ctx)
	}
	var classes []reconcile.Class
	if ret.Get(0) != nil {
		classes = ret.Get(0).([]reconcile.Class)
	}
	return classes, ret.Error(1)
}

// MockIdentifier_EndIdentify_Call is an expectation on EndIdentify.
type MockIdentifier_EndIdentify_Call struct {
	*mock.Call
}

// EndIdentify expects an EndIdentify call.
func (_e *MockIdentifier_Expecter) EndIdentify(ctx interface{}) *MockIdentifier_EndIdentify_Call {
	return &MockIdentifier_EndIdentify_Call{Call: _e.mock.On("EndIdentify", ctx)}
}

// Return sets the returned classes and error.
func (_c *MockIdentifier_EndIdentify_Call) Return(classes []reconcile.Class, err error) *MockIdentifier_EndIdentify_Call {
	_c.Call.Return(classes, err)
	return _c
}

// RunAndReturn computes the result from the call's context.
func (_c *MockIdentifier_EndIdentify_Call) RunAndReturn(fn func(context.Context) ([]reconcile.Class, error)) *MockIdentifier_EndIdentify_Call {
	_c.Call.Return(fn)
	return _c
}
