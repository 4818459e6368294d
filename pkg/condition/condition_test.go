package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mysteryScope(password string) *Scope {
	scope := NewScope()
	scope.Set("mistery", map[string]any{"password": password})

	return scope
}

func TestEval_Branching(t *testing.T) {
	tests := []struct {
		password string
		first    bool
		second   bool
	}{
		{password: "abrete sésamo", first: true, second: false},
		{password: "123456", first: false, second: true},
		{password: "qwerty", first: false, second: false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			scope := mysteryScope(tt.password)

			first, err := Evaluate(`mistery.password == "abrete sésamo"`, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.first, first)

			second, err := Evaluate(`mistery.password == '123456'`, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.second, second)
		})
	}
}

func TestEval_Operators(t *testing.T) {
	scope := NewScope()
	scope.Set("form", map[string]any{
		"age":    float64(21),
		"code":   "42",
		"name":   "juan",
		"tags":   []any{"a", "b"},
		"active": true,
	})

	tests := map[string]bool{
		`form.age >= 18`:                         true,
		`form.age < 18`:                          false,
		`form.code == 42`:                        true,
		`form.code > 40.5`:                       true,
		`form.name != "pedro"`:                   true,
		`form.name in ["juan", "pedro"]`:         true,
		`form.name not in ["juan", "pedro"]`:     false,
		`"a" in form.tags`:                       true,
		`form.active and form.age > 30`:          false,
		`form.active && (form.age > 30 || true)`: true,
		`not form.active or form.name == "juan"`: true,
		`!form.active`:                           false,
		`form.age == -21 or form.age == 21`:      true,
		`form.name == 'ju\'an'`:                  false,
	}

	for src, expected := range tests {
		t.Run(src, func(t *testing.T) {
			result, err := Evaluate(src, scope)
			require.NoError(t, err)
			assert.Equal(t, expected, result)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(`form.field == "x" $`)
	assert.True(t, IsLexError(err))

	_, err = Parse(`form.field == `)
	assert.True(t, IsParseError(err))

	_, err = Parse(`(form.field == 1`)
	assert.True(t, IsParseError(err))

	_, err = Parse(`field == 1`)
	assert.True(t, IsGrammarError(err))

	_, err = Parse(`a.b.c == 1`)
	assert.True(t, IsGrammarError(err))

	_, err = Parse(`form.x in [other.y]`)
	assert.True(t, IsGrammarError(err))

	_, err = Parse(`"unterminated`)
	assert.True(t, IsLexError(err))
}

func TestParse_Refs(t *testing.T) {
	expr, err := Parse(`a.b == 1 and (c.d or not e.f)`)
	require.NoError(t, err)

	assert.Equal(t, []Ref{{Form: "a", Field: "b"}, {Form: "c", Field: "d"}, {Form: "e", Field: "f"}}, expr.Refs())
	assert.Equal(t, `a.b == 1 and (c.d or not e.f)`, expr.String())
}

func TestEval_UndefinedVariable(t *testing.T) {
	expr, err := Parse(`missing.field == 1`)
	require.NoError(t, err)

	_, err = expr.Eval(NewScope())
	require.Error(t, err)
	assert.True(t, IsUndefinedVariable(err))
	assert.Equal(t, "variable used in if is not defined 'missing.field'", err.Error())
}

func TestEval_OrderingNonNumeric(t *testing.T) {
	scope := NewScope()
	scope.Set("form", map[string]any{"name": "juan"})

	_, err := Evaluate(`form.name < "zeta"`, scope)
	require.Error(t, err)
	assert.True(t, IsEvaluationError(err))
}

func TestScope_Shadowing(t *testing.T) {
	scope := NewScope()
	scope.Set("form", map[string]any{"a": 1, "b": 2})

	scope.Push()
	scope.Set("form", map[string]any{"a": 3})

	value, ok := scope.Lookup("form", "a")
	assert.True(t, ok)
	assert.Equal(t, 3, value)
	assert.False(t, scope.Has("form", "b"))

	scope.Pop()
	assert.True(t, scope.Has("form", "b"))

	scope.Pop()
	assert.Equal(t, 1, scope.Depth())
	assert.True(t, scope.Has("form", "a"))
}
