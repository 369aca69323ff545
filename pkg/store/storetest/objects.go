package storetest

import (
	"bytes"
	"testing"

	"github.com/guzman109/ArrayMorph/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunObjectTests covers whole-object put, get and delete.
func (suite *StoreTestSuite) RunObjectTests(t *testing.T) {
	t.Run("PutThenGet", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		data := []byte("hello world")
		require.NoError(t, s.Put(ctx, "file.h5/dset/0", data))

		got, err := s.Get(ctx, "file.h5/dset/0")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		require.NoError(t, s.Put(ctx, "obj", []byte("first version")))
		require.NoError(t, s.Put(ctx, "obj", []byte("second")))

		got, err := s.Get(ctx, "obj")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("PutDoesNotAliasCallerBuffer", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		data := []byte("abcd")
		require.NoError(t, s.Put(ctx, "obj", data))
		data[0] = 'z'

		got, err := s.Get(ctx, "obj")
		require.NoError(t, err)
		assert.Equal(t, []byte("abcd"), got)
	})

	t.Run("LargeObject", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		data := bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 128*1024)
		require.NoError(t, s.Put(ctx, "large", data))

		got, err := s.Get(ctx, "large")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, got), "large object round trip mismatch")
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()

		_, err := s.Get(testContext(), "missing")
		assert.ErrorIs(t, err, store.ErrObjectNotFound)
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		require.NoError(t, s.Put(ctx, "obj", []byte("data")))
		require.NoError(t, s.Delete(ctx, "obj"))

		_, err := s.Get(ctx, "obj")
		assert.ErrorIs(t, err, store.ErrObjectNotFound)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()

		assert.NoError(t, s.Delete(testContext(), "never-written"))
	})

	t.Run("HealthCheck", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()

		assert.NoError(t, s.HealthCheck(testContext()))
	})
}

// RunRangeTests covers GetRange.
func (suite *StoreTestSuite) RunRangeTests(t *testing.T) {
	t.Run("Ranges", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		require.NoError(t, s.Put(ctx, "obj", []byte("hello world")))

		tests := []struct {
			name   string
			offset int64
			length int64
			want   string
		}{
			{"prefix", 0, 5, "hello"},
			{"middle", 6, 5, "world"},
			{"single byte", 4, 1, "o"},
			{"truncated at end", 6, 100, "world"},
		}
		for _, tt := range tests {
			got, err := s.GetRange(ctx, "obj", tt.offset, tt.length)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, string(got), tt.name)
		}
	})

	t.Run("RangeMissing", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()

		_, err := s.GetRange(testContext(), "missing", 0, 4)
		assert.ErrorIs(t, err, store.ErrObjectNotFound)
	})

	t.Run("RangePastEnd", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		require.NoError(t, s.Put(ctx, "obj", []byte("short")))
		_, err := s.GetRange(ctx, "obj", 10, 4)
		assert.ErrorIs(t, err, store.ErrInvalidRange)
	})
}

// RunPrefixTests covers List and DeleteByPrefix.
func (suite *StoreTestSuite) RunPrefixTests(t *testing.T) {
	t.Run("ListAndDeleteByPrefix", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()
		ctx := testContext()

		for _, key := range []string{"a.h5/x/0", "a.h5/x/1", "a.h5/y/0", "b.h5/x/0"} {
			require.NoError(t, s.Put(ctx, key, []byte(key)))
		}

		keys, err := s.List(ctx, "a.h5/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.h5/x/0", "a.h5/x/1", "a.h5/y/0"}, keys)

		require.NoError(t, s.DeleteByPrefix(ctx, "a.h5/x/"))

		keys, err = s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.h5/y/0", "b.h5/x/0"}, keys)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := suite.NewStore(t)
		defer func() { _ = s.Close() }()

		keys, err := s.List(testContext(), "nothing/")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

// RunLifecycleTests checks that a closed store rejects calls.
func (suite *StoreTestSuite) RunLifecycleTests(t *testing.T) {
	t.Run("ClosedStoreRejectsCalls", func(t *testing.T) {
		s := suite.NewStore(t)
		ctx := testContext()
		require.NoError(t, s.Close())

		_, err := s.Get(ctx, "obj")
		assert.ErrorIs(t, err, store.ErrStoreClosed)
		assert.ErrorIs(t, s.Put(ctx, "obj", []byte("x")), store.ErrStoreClosed)
		assert.ErrorIs(t, s.HealthCheck(ctx), store.ErrStoreClosed)
	})
}
