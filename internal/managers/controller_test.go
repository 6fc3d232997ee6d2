package managers

import (
	"context"
	"sync"
	"testing"

	"github.com/chrissnell/groundwatch/internal/controllers/restserver"
	"github.com/chrissnell/groundwatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewControllerManagerRejectsBadControllers(t *testing.T) {
	tests := []struct {
		name string
		cc   config.ControllerData
	}{
		{"unknown type", config.ControllerData{Type: "aprs"}},
		{"refresh without section", config.ControllerData{Type: "refresh"}},
		{"rest without registry", config.ControllerData{Type: "rest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wg sync.WaitGroup
			cfg := &config.ConfigData{Controllers: []config.ControllerData{tt.cc}}
			_, err := NewControllerManager(context.Background(), &wg, cfg, restserver.Deps{}, zap.NewNop().Sugar())
			assert.Error(t, err)
		})
	}
}

func TestNewControllerManagerWithoutControllers(t *testing.T) {
	var wg sync.WaitGroup
	cm, err := NewControllerManager(context.Background(), &wg, &config.ConfigData{}, restserver.Deps{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NoError(t, cm.StartControllers())
}
