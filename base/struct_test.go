// Copyright © 2023 Sloan Childers
package base

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMotionConfig_EnabledByDefault(t *testing.T) {
	config := &CameraConfig{}
	require.NoError(t, json.Unmarshal([]byte(`{"Motion":{"Area":300,"Mask":[{"x1":1,"y1":2,"x2":3,"y2":4}]}}`), config))
	config.SetDefaults()
	assert.True(t, config.Motion.Enabled)
	assert.Equal(t, 300.0, config.Motion.Area)
	assert.Equal(t, []Rect{{X1: 1, Y1: 2, X2: 3, Y2: 4}}, config.Motion.Mask)
}

func TestMotionConfig_ExplicitlyDisabled(t *testing.T) {
	config := &CameraConfig{}
	require.NoError(t, json.Unmarshal([]byte(`{"Motion":{"Enabled":false}}`), config))
	config.SetDefaults()
	assert.False(t, config.Motion.Enabled)
}

func TestMotionConfig_Garbage(t *testing.T) {
	config := &CameraConfig{}
	assert.Error(t, json.Unmarshal([]byte(`{"Motion":{"Enabled":"yes"}}`), config))
}

func TestSetDefaults(t *testing.T) {
	config := &CameraConfig{}
	config.SetDefaults()
	assert.Equal(t, "Camera 1", config.Name)
	assert.Equal(t, "opencv", config.Plugin)
	assert.True(t, config.Motion.Enabled)
	assert.Equal(t, 500.0, config.Motion.Area)
	assert.Equal(t, 25, config.Motion.Threshold)
	assert.Equal(t, 21, config.Motion.Blur)
	assert.Equal(t, 300, config.Motion.BeforeSeconds)
	assert.Equal(t, 5*time.Second, config.Motion.QuietPeriod())
	assert.Equal(t, "XVID", config.Recording.Codec)
	assert.Equal(t, ".avi", config.Recording.Ext)

	config = &CameraConfig{Motion: &MotionConfig{Blur: 10}}
	config.SetDefaults()
	assert.Equal(t, 11, config.Motion.Blur)
}
