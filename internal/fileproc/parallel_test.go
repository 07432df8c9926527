package fileproc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panbanda/plint/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachFile_PreservesInputOrder(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.sql", i)
	}

	var progress atomic.Int32
	tracker := analyzer.NewTracker(func(_, _ int, _ string) { progress.Add(1) })
	ctx := analyzer.WithTracker(context.Background(), tracker)

	results, errs := ForEachFile(ctx, files, Options{Workers: 4}, func(path string) (string, error) {
		if path == "f00.sql" {
			time.Sleep(20 * time.Millisecond)
		}
		return "ok:" + path, nil
	})

	require.Nil(t, errs)
	require.Len(t, results, 50)
	assert.Equal(t, int32(50), progress.Load())
	assert.Equal(t, 50, tracker.Total())
	for i, r := range results {
		assert.Equal(t, "ok:"+files[i], r)
	}
}

func TestForEachFile_CollectsErrors(t *testing.T) {
	files := []string{"a.sql", "bad.sql", "c.sql", "gone.sql"}

	results, errs := ForEachFile(context.Background(), files, Options{}, func(path string) (int, error) {
		switch path {
		case "bad.sql":
			return 0, errors.New("unreadable")
		case "gone.sql":
			return 0, fs.ErrNotExist
		}
		return len(path), nil
	})

	assert.Equal(t, []int{5, 5}, results)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"bad.sql", "gone.sql"}, errs.Paths())
	assert.Equal(t, "2 files failed (first: bad.sql: unreadable)", errs.Error())
	assert.ErrorIs(t, errs, fs.ErrNotExist)

	var fe FileError
	require.ErrorAs(t, errs, &fe)
	assert.Equal(t, "bad.sql", fe.Path)
}

func TestForEachFile_Empty(t *testing.T) {
	results, errs := ForEachFile(context.Background(), nil, Options{}, func(string) (int, error) {
		t.Fatal("fn should not be called")
		return 0, nil
	})
	assert.Nil(t, results)
	assert.Nil(t, errs)
}

func TestForEachFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := analyzer.NewTracker(nil)
	ctx = analyzer.WithTracker(ctx, tracker)

	var calls atomic.Int32
	results, errs := ForEachFile(ctx, []string{"a", "b", "c"}, Options{Workers: 1}, func(string) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.Empty(t, results)
	assert.Zero(t, calls.Load())
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs, context.Canceled)
	assert.Equal(t, 3, tracker.Current(), "cancelled files still tick")
}

func TestErrorsMessage(t *testing.T) {
	assert.Equal(t, "no errors", Errors(nil).Error())
	assert.Equal(t, "a: x", Errors{{Path: "a", Err: errors.New("x")}}.Error())
}

func TestOptionsWorkers(t *testing.T) {
	assert.Equal(t, 3, Options{Workers: 3}.workers())
	assert.Positive(t, Options{}.workers())
}
