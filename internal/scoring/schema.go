package scoring

import (
	_ "embed"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema/scoring.cue
var schemaSource []byte

// validateSchema checks a decoded scoring document against the #ScoringConfig
// definition. Unknown fields, wrong types and absent required fields all fail.
func validateSchema(doc map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("scoring.cue"))
	if err := schema.Err(); err != nil {
		return configErr("schema", "compiling embedded schema: %v", err)
	}

	def := schema.LookupPath(cue.ParsePath("#ScoringConfig"))
	if !def.Exists() {
		return configErr("schema", "#ScoringConfig definition not found")
	}

	data := ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return configErr("document", "encoding: %v", err)
	}

	unified := def.Unify(data)
	if err := unified.Err(); err != nil {
		return configErr("document", "%v", err)
	}
	// Concreteness catches required fields the document left out.
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return configErr("document", "%v", err)
	}
	return nil
}
