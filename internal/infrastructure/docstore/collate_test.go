package docstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOrdersTypes(t *testing.T) {
	ordered := []interface{}{
		nil,
		false,
		true,
		-1.5,
		0.0,
		2,
		"",
		"a",
		"b",
		[]interface{}{},
		[]interface{}{1.0},
		[]interface{}{1.0, 2.0},
		[]interface{}{2.0},
		map[string]interface{}{},
		map[string]interface{}{"a": 1.0},
		map[string]interface{}{"a": 2.0},
		map[string]interface{}{"b": 0.0},
	}

	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := cmpInt(i, j)
			assert.Equal(t, want, got, "Compare(%v, %v)", ordered[i], ordered[j])
		}
	}
}

func TestCompareMixedNumberTypes(t *testing.T) {
	assert.Equal(t, 0, Compare(1, 1.0))
	assert.Equal(t, 0, Compare(int64(3), json.Number("3")))
	assert.Equal(t, -1, Compare(uint(1), float32(1.5)))
	assert.Equal(t, 1, Compare(10.0, 9))
}
