package registry_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/relaycrm/relay/pkg/executors/cma"
	"github.com/relaycrm/relay/pkg/executors/sendsms"
	"github.com/relaycrm/relay/pkg/mocks"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *registry.Registry {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return registry.NewRegistry(logger)
}

func TestCreateExecutorGeneralFallback(t *testing.T) {
	r := newTestRegistry()
	r.RegisterGeneral(cma.NewFactory())

	executor, err := r.CreateExecutor(models.IndustryRealEstate, models.TaskTypeCMAGeneration, nil)
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestCreateExecutorIndustryShadowsGeneral(t *testing.T) {
	r := newTestRegistry()

	generalGateway := &mocks.SMSGateway{}
	dentalGateway := &mocks.SMSGateway{}

	r.RegisterGeneral(sendsms.NewFactory(generalGateway))
	r.Register(models.IndustryDental, sendsms.NewFactory(dentalGateway))

	config := map[string]any{"message": "hi"}

	executor, err := r.CreateExecutor(models.IndustryDental, models.TaskTypeSendSMS, config)
	require.NoError(t, err)
	assert.NotNil(t, executor)

	executor, err = r.CreateExecutor(models.IndustryRestaurant, models.TaskTypeSendSMS, config)
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestResolves(t *testing.T) {
	r := newTestRegistry()
	r.RegisterGeneral(sendsms.NewFactory(&mocks.SMSGateway{}))

	assert.True(t, r.Resolves(models.IndustryGeneral, models.TaskTypeSendSMS))
	assert.True(t, r.Resolves(models.IndustryDental, models.TaskTypeSendSMS))
	assert.False(t, r.Resolves(models.IndustryDental, models.TaskTypeSendEmail))
}

func TestCreateExecutorNotRegistered(t *testing.T) {
	r := newTestRegistry()

	_, err := r.CreateExecutor(models.IndustryRealEstate, models.TaskTypeSendEmail, nil)
	assert.ErrorIs(t, err, registry.ErrExecutorNotRegistered)
}

func TestCreateExecutorConfigValidation(t *testing.T) {
	r := newTestRegistry()
	r.RegisterGeneral(sendsms.NewFactory(&mocks.SMSGateway{}))

	// message is required by the sendsms schema
	_, err := r.CreateExecutor(models.IndustryGeneral, models.TaskTypeSendSMS, map[string]any{})
	assert.ErrorIs(t, err, registry.ErrInvalidConfig)

	_, err = r.CreateExecutor(models.IndustryGeneral, models.TaskTypeSendSMS, map[string]any{"message": "hello"})
	assert.NoError(t, err)
}
