// Package mocks provides testify mocks for the gateway contracts.
package mocks

import (
	"context"
	"time"

	"github.com/relaycrm/relay/pkg/gateways"
	"github.com/stretchr/testify/mock"
)

type SMSGateway struct {
	mock.Mock
}

func (m *SMSGateway) Send(ctx context.Context, to, body string) (*gateways.SendResult, error) {
	args := m.Called(ctx, to, body)

	result, _ := args.Get(0).(*gateways.SendResult)

	return result, args.Error(1)
}

type EmailGateway struct {
	mock.Mock
}

func (m *EmailGateway) Send(ctx context.Context, to, subject, body string) (*gateways.SendResult, error) {
	args := m.Called(ctx, to, subject, body)

	result, _ := args.Get(0).(*gateways.SendResult)

	return result, args.Error(1)
}

type Calendar struct {
	mock.Mock
}

func (m *Calendar) CreateEvent(ctx context.Context, subjectID string, when time.Time, durationMinutes int) (string, error) {
	args := m.Called(ctx, subjectID, when, durationMinutes)

	return args.String(0), args.Error(1)
}

type VoiceGateway struct {
	mock.Mock
}

func (m *VoiceGateway) StartCall(ctx context.Context, to, script string) (*gateways.SendResult, error) {
	args := m.Called(ctx, to, script)

	result, _ := args.Get(0).(*gateways.SendResult)

	return result, args.Error(1)
}

type NotificationSink struct {
	mock.Mock
}

func (m *NotificationSink) Notify(ctx context.Context, userID, channel string, payload map[string]any) error {
	args := m.Called(ctx, userID, channel, payload)

	return args.Error(0)
}

type VoiceProvisioner struct {
	mock.Mock
}

func (m *VoiceProvisioner) Provision(ctx context.Context, tenantID string, config map[string]any) (string, error) {
	args := m.Called(ctx, tenantID, config)

	return args.String(0), args.Error(1)
}
