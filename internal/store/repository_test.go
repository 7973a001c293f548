package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Vocabulary()

	t.Run("all signs ordered by class id", func(t *testing.T) {
		signs, err := repo.List("")
		require.NoError(t, err)
		require.Len(t, signs, 17)

		for i, sign := range signs {
			assert.Equal(t, i, sign.ClassID)
			assert.NotEmpty(t, sign.DisplayName)
			_, err := uuid.Parse(sign.ID)
			assert.NoError(t, err)
		}
		assert.Equal(t, "an", signs[0].ClassName)
		assert.Equal(t, "xin_loi", signs[16].ClassName)
	})

	t.Run("filter by category", func(t *testing.T) {
		signs, err := repo.List("Câu hỏi")
		require.NoError(t, err)
		require.Len(t, signs, 3)
		for _, sign := range signs {
			assert.Equal(t, DifficultyIntermediate, sign.Difficulty)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		signs, err := repo.List("Thể thao")
		require.NoError(t, err)
		assert.Empty(t, signs)
	})
}

func TestVocabularyRepository_GetByClassID(t *testing.T) {
	s := newTestStore(t)

	sign, err := s.Vocabulary().GetByClassID(15)
	require.NoError(t, err)
	assert.Equal(t, "xin_chao", sign.ClassName)
	assert.Equal(t, "Xin chào", sign.DisplayName)
	assert.Equal(t, "Giao tiếp", sign.Category)
	assert.Equal(t, DifficultyBeginner, sign.Difficulty)
	assert.False(t, sign.CreatedAt.IsZero())

	_, err = s.Vocabulary().GetByClassID(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository(t *testing.T) {
	t.Run("record assigns id and time", func(t *testing.T) {
		s := newTestStore(t)

		e := &HistoryEntry{Source: SourceHTTP, Threshold: 0.5, Success: true}
		require.NoError(t, s.History().Record(e))

		_, err := uuid.Parse(e.ID)
		assert.NoError(t, err)
		assert.False(t, e.CreatedAt.IsZero())
		assert.JSONEq(t, `[]`, string(e.Detections))
	})

	t.Run("list returns newest first", func(t *testing.T) {
		s := newTestStore(t)
		repo := s.History()

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Record(&HistoryEntry{
				Source:        SourceWebSocket,
				Threshold:     0.25,
				Success:       true,
				Count:         i,
				TopClass:      fmt.Sprintf("class_%d", i),
				TopConfidence: 0.9,
				Detections:    json.RawMessage(`[{"class_id": 1}]`),
			}))
		}
		require.NoError(t, repo.Record(&HistoryEntry{Source: SourceHTTP, Error: "No image provided"}))

		entries, err := repo.List(3)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, SourceHTTP, entries[0].Source)
		assert.False(t, entries[0].Success)
		assert.Equal(t, "No image provided", entries[0].Error)

		assert.Equal(t, 4, entries[1].Count)
		assert.Equal(t, "class_4", entries[1].TopClass)
		assert.Equal(t, 0.25, entries[1].Threshold)
		assert.JSONEq(t, `[{"class_id": 1}]`, string(entries[1].Detections))
		assert.Equal(t, 3, entries[2].Count)

		n, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})

	t.Run("limit defaults", func(t *testing.T) {
		s := newTestStore(t)
		for i := 0; i < DefaultHistoryLimit+5; i++ {
			require.NoError(t, s.History().Record(&HistoryEntry{Source: SourceHTTP}))
		}

		entries, err := s.History().List(0)
		require.NoError(t, err)
		assert.Len(t, entries, DefaultHistoryLimit)
	})

	t.Run("prune keeps newest", func(t *testing.T) {
		s := newTestStore(t)
		repo := s.History()
		for i := 0; i < 10; i++ {
			require.NoError(t, repo.Record(&HistoryEntry{Source: SourceHTTP, Count: i}))
		}

		removed, err := repo.Prune(4)
		require.NoError(t, err)
		assert.Equal(t, int64(6), removed)

		entries, err := repo.List(100)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, 9, entries[0].Count)
		assert.Equal(t, 6, entries[3].Count)
	})

	t.Run("concurrent records", func(t *testing.T) {
		s := newTestStore(t)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.History().Record(&HistoryEntry{Source: SourceHTTP})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		n, err := s.History().Count()
		require.NoError(t, err)
		assert.Equal(t, 20, n)
	})
}
