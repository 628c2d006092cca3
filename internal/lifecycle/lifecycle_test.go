package lifecycle

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/pokedex-api/internal/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, img image.Image) (model.Prediction, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(model.Prediction), args.Error(1)
}

func (m *MockClassifier) Close() {
	m.Called()
}

type MockEnsurer struct {
	mock.Mock
}

func (m *MockEnsurer) Ensure(ctx context.Context, url, dest string) (bool, error) {
	args := m.Called(ctx, url, dest)
	return args.Bool(0), args.Error(1)
}

func TestLifecycleReady(t *testing.T) {
	classifier := new(MockClassifier)
	classifier.On("Close").Return().Once()

	readyCalls := 0
	lc := New(func(ctx context.Context) (Classifier, error) {
		return classifier, nil
	}, WithLogger(quiet), WithReadyHook(func() { readyCalls++ }))

	state, _ := lc.State()
	assert.Equal(t, StateIdle, state)

	_, err := lc.Classifier()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, lc.Run(context.Background()))
	<-lc.Done()

	got, err := lc.Classifier()
	require.NoError(t, err)
	assert.Same(t, classifier, got)
	assert.Equal(t, 1, readyCalls)

	state, err = lc.State()
	assert.Equal(t, StateReady, state)
	assert.NoError(t, err)

	assert.ErrorIs(t, lc.Run(context.Background()), ErrAlreadyStarted)

	lc.Close()
	_, err = lc.Classifier()
	assert.ErrorIs(t, err, ErrNotReady)
	classifier.AssertExpectations(t)
}

func TestLifecycleFailed(t *testing.T) {
	boom := errors.New("checkpoint corrupt")
	lc := New(func(ctx context.Context) (Classifier, error) {
		return nil, boom
	}, WithLogger(quiet))

	err := lc.Run(context.Background())
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.ErrorIs(t, err, boom)

	_, err = lc.Classifier()
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.ErrorIs(t, err, boom)

	state, cause := lc.State()
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, boom, cause)
	assert.Equal(t, "failed", state.String())
}

func TestLifecycleGatesUntilInitFinishes(t *testing.T) {
	release := make(chan struct{})
	classifier := new(MockClassifier)
	lc := New(func(ctx context.Context) (Classifier, error) {
		<-release
		return classifier, nil
	}, WithLogger(quiet))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, lc.Run(context.Background()))
	}()

	assert.Eventually(t, func() bool {
		state, _ := lc.State()
		return state == StateInitializing
	}, timeout, tick)

	_, err := lc.Classifier()
	assert.ErrorIs(t, err, ErrNotReady)

	close(release)
	wg.Wait()

	_, err = lc.Classifier()
	assert.NoError(t, err)
}

func TestLifecycleCloseDuringInit(t *testing.T) {
	release := make(chan struct{})
	classifier := new(MockClassifier)
	classifier.On("Close").Return().Once()

	lc := New(func(ctx context.Context) (Classifier, error) {
		<-release
		return classifier, nil
	}, WithLogger(quiet))

	errc := make(chan error, 1)
	go func() { errc <- lc.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		state, _ := lc.State()
		return state == StateInitializing
	}, timeout, tick)

	lc.Close()
	close(release)

	assert.ErrorIs(t, <-errc, ErrNotReady)
	_, err := lc.Classifier()
	assert.ErrorIs(t, err, ErrNotReady)
	classifier.AssertExpectations(t)
}

func TestLifecycleCloseBeforeRun(t *testing.T) {
	lc := New(func(context.Context) (Classifier, error) {
		t.Fatal("initializer must not run after Close")
		return nil, nil
	}, WithLogger(quiet))

	lc.Close()

	select {
	case <-lc.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed by Close before Run")
	}
	assert.ErrorIs(t, lc.Run(context.Background()), ErrAlreadyStarted)

	state, _ := lc.State()
	assert.Equal(t, StateClosed, state)
	lc.Close()
}

func TestFetchAndLoad(t *testing.T) {
	assets := Assets{URL: "https://example.com/model.onnx", CheckpointPath: "models/model.onnx"}

	t.Run("fetches then loads with embedded labels", func(t *testing.T) {
		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, assets.URL, assets.CheckpointPath).Return(true, nil).Once()
		classifier := new(MockClassifier)

		var gotPath string
		var gotLabels *model.Labels
		init := FetchAndLoad(assets, ensurer, func(path string, labels *model.Labels) (Classifier, error) {
			gotPath = path
			gotLabels = labels
			return classifier, nil
		}, quiet)

		got, err := init(context.Background())
		require.NoError(t, err)
		assert.Same(t, classifier, got)
		assert.Equal(t, assets.CheckpointPath, gotPath)
		require.NotNil(t, gotLabels)
		assert.Equal(t, 150, gotLabels.Len())
		ensurer.AssertExpectations(t)
	})

	t.Run("fetch failure stops before load", func(t *testing.T) {
		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, assets.URL, assets.CheckpointPath).Return(false, errors.New("dns")).Once()

		init := FetchAndLoad(assets, ensurer, func(string, *model.Labels) (Classifier, error) {
			t.Fatal("load must not run after a failed fetch")
			return nil, nil
		}, quiet)

		_, err := init(context.Background())
		assert.ErrorContains(t, err, "failed to fetch checkpoint")
	})

	t.Run("label file override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version":"tiny","classes":["Pikachu","Eevee"]}`), 0o644))

		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		withLabels := assets
		withLabels.LabelsFile = path
		init := FetchAndLoad(withLabels, ensurer, func(_ string, labels *model.Labels) (Classifier, error) {
			assert.Equal(t, []string{"Pikachu", "Eevee"}, labels.Classes)
			return new(MockClassifier), nil
		}, quiet)

		_, err := init(context.Background())
		require.NoError(t, err)
	})

	t.Run("load failure is wrapped", func(t *testing.T) {
		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		init := FetchAndLoad(assets, ensurer, func(string, *model.Labels) (Classifier, error) {
			return nil, model.ErrArchitectureMismatch
		}, quiet)

		_, err := init(context.Background())
		assert.ErrorIs(t, err, model.ErrArchitectureMismatch)
	})

	t.Run("unloadable download is removed", func(t *testing.T) {
		withPath := assets
		withPath.CheckpointPath = filepath.Join(t.TempDir(), "model.onnx")
		require.NoError(t, os.WriteFile(withPath.CheckpointPath, []byte("<html>"), 0o644))

		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, withPath.URL, withPath.CheckpointPath).Return(true, nil).Once()

		init := FetchAndLoad(withPath, ensurer, func(string, *model.Labels) (Classifier, error) {
			return nil, model.ErrArchitectureMismatch
		}, quiet)

		_, err := init(context.Background())
		assert.ErrorIs(t, err, model.ErrArchitectureMismatch)
		assert.NoFileExists(t, withPath.CheckpointPath)
	})

	t.Run("existing checkpoint is kept on load failure", func(t *testing.T) {
		withPath := assets
		withPath.CheckpointPath = filepath.Join(t.TempDir(), "model.onnx")
		require.NoError(t, os.WriteFile(withPath.CheckpointPath, []byte("onnx"), 0o644))

		ensurer := new(MockEnsurer)
		ensurer.On("Ensure", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		init := FetchAndLoad(withPath, ensurer, func(string, *model.Labels) (Classifier, error) {
			return nil, model.ErrArchitectureMismatch
		}, quiet)

		_, err := init(context.Background())
		assert.Error(t, err)
		assert.FileExists(t, withPath.CheckpointPath)
	})
}

func TestONNXLoaderMissingCheckpoint(t *testing.T) {
	labels, err := model.DefaultLabels()
	require.NoError(t, err)

	classifier, err := ONNXLoader()(filepath.Join(t.TempDir(), "model.onnx"), labels)
	assert.ErrorIs(t, err, model.ErrCheckpointMissing)
	assert.Nil(t, classifier)
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
