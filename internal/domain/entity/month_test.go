package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth_String(t *testing.T) {
	assert.Equal(t, "2024-01", NewMonth(2024, time.January).String())
	assert.Equal(t, "2024-12", NewMonth(2024, time.December).String())
	assert.Equal(t, "0999-03", NewMonth(999, time.March).String())
}

func TestParseMonth(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		m, err := ParseMonth("2024-07")
		require.NoError(t, err)
		assert.Equal(t, 2024, m.Year)
		assert.Equal(t, time.July, m.Month)
		assert.Equal(t, "07", m.Number())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"", "2024", "2024-13", "24-01", "2024/01"} {
			_, err := ParseMonth(in)
			assert.Error(t, err, in)
		}
	})
}

func TestMonth_Range(t *testing.T) {
	m := NewMonth(2024, time.December)

	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), m.End())
	assert.Equal(t, NewMonth(2024, time.November), m.Previous())
	assert.Equal(t, NewMonth(2023, time.December), NewMonth(2024, time.January).Previous())
}

func TestMonth_After(t *testing.T) {
	assert.True(t, NewMonth(2024, time.March).After(NewMonth(2024, time.February)))
	assert.True(t, NewMonth(2025, time.January).After(NewMonth(2024, time.December)))
	assert.False(t, NewMonth(2024, time.March).After(NewMonth(2024, time.March)))
}

func TestMonth_ScanValue(t *testing.T) {
	var m Month
	require.NoError(t, m.Scan("2024-05"))
	assert.Equal(t, NewMonth(2024, time.May), m)

	require.NoError(t, m.Scan([]byte("2023-11")))
	assert.Equal(t, NewMonth(2023, time.November), m)

	assert.Error(t, m.Scan(42))

	v, err := NewMonth(2024, time.May).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05", v)
}
