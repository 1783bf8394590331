package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rootschemas "github.com/jonathan/taskmatch/schemas"
)

func TestValidate_FieldPaths(t *testing.T) {
	err := Validate(rootschemas.DuplicateCheck, `{"is_duplicate": true, "confidence": 1.5, "new_skills_required": [3]}`)
	require.Error(t, err)

	var shape *ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, rootschemas.DuplicateCheck, shape.Payload)
	fields := make([]string, 0, len(shape.Violations))
	for _, v := range shape.Violations {
		fields = append(fields, v.Field)
	}
	assert.Contains(t, fields, "confidence")
	assert.Contains(t, fields, "new_skills_required.0")
	assert.Contains(t, err.Error(), "duplicate_check payload does not match schema")
}

func TestValidate_NotJSON(t *testing.T) {
	var shape *ShapeError
	require.ErrorAs(t, Validate(rootschemas.SkillList, `["Go",`), &shape)
	assert.Equal(t, "(root)", shape.Violations[0].Field)
}

func TestValidate_UnknownPayload(t *testing.T) {
	var ce *CompileError
	require.ErrorAs(t, Validate("sprint_plan", `{}`), &ce)
	assert.Equal(t, "sprint_plan", ce.Payload)
}

func TestValidator_Bound(t *testing.T) {
	validate := Validator(rootschemas.ProfileUpdate)
	assert.NoError(t, validate(`{"needs_update": true, "new_skills_to_add": ["Redis"]}`))
	assert.Error(t, validate(`{"reasoning": "no flag"}`))
}

func TestShapeError_Error(t *testing.T) {
	err := &ShapeError{Payload: "skill_list", Violations: []Violation{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	assert.Equal(t, "skill_list payload does not match schema: a: bad; b: worse", err.Error())
}
