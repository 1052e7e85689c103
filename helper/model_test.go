package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	originalDir := ModelDir
	ModelDir = t.TempDir()
	defer func() { ModelDir = originalDir }()

	t.Run("Return existing model path when model exists", func(t *testing.T) {
		modelPath := filepath.Join(ModelDir, "test_mock-model")
		require.NoError(t, os.MkdirAll(modelPath, 0750), "Expected directory creation to succeed")

		path, err := PrepareModel("test/mock-model", "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error for existing model")
		assert.Equal(t, modelPath, path, "Expected returned path to match existing model path")
	})

	t.Run("Model name without slash is used as is", func(t *testing.T) {
		modelPath := filepath.Join(ModelDir, "plainmodel")
		require.NoError(t, os.MkdirAll(modelPath, 0750))

		path, err := PrepareModel("plainmodel", "")
		assert.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("Download model when it doesn't exist", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping model download in short mode")
		}

		path, err := PrepareModel("sentence-transformers/all-MiniLM-L6-v2", "onnx/model.onnx")
		if err != nil {
			assert.Contains(t, err.Error(), "failed to", "Expected error to be about download failure")
		} else {
			assert.DirExists(t, path, "Expected model directory to exist")
		}
	})
}
