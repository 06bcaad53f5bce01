package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Сканер
	LexUnterminatedFence  Code = 1001
	LexUnterminatedTag    Code = 1002
	LexUnterminatedOutput Code = 1003
	LexEmptyTag           Code = 1004

	// Структура тегов
	TagMismatchedClose Code = 2001
	TagUnclosed        Code = 2002
	TagUnexpectedClose Code = 2003
	TagMisplacedBranch Code = 2004
	TagDuplicateSchema Code = 2005
	TagSchemaNotLast   Code = 2006
	TagNestingTooDeep  Code = 2007
	TagUnknown         Code = 2008

	// Выражения и фильтры
	ExprUnknownObject      Code = 3001
	ExprUsedBeforeAssign   Code = 3002
	ExprSuspiciousObject   Code = 3003
	ExprHallucinatedFilter Code = 3004
	ExprUnknownFilter      Code = 3005
	ExprDeprecatedFilter   Code = 3006
	ExprFilterArity        Code = 3007
	ExprFilterArgType      Code = 3008
	ExprCStyleOperator     Code = 3009
	ExprMalformed          Code = 3010

	// JSON-схема
	SchemaInvalidJSON          Code = 4001
	SchemaRangeStepCount       Code = 4002
	SchemaRangeStepTooSmall    Code = 4003
	SchemaDecimalPrecision     Code = 4004
	SchemaDuplicateID          Code = 4005
	SchemaUnknownType          Code = 4006
	SchemaAppBlockKey          Code = 4007
	SchemaBlockLimit           Code = 4008
	SchemaMissingName          Code = 4009
	SchemaMissingField         Code = 4010
	SchemaMissingLabel         Code = 4011
	SchemaRangeBounds          Code = 4012
	SchemaSelectOptions        Code = 4013
	SchemaPresetUnknownSetting Code = 4014
	SchemaUndefinedSetting     Code = 4015
	SchemaRootNotObject        Code = 4016

	// Символы: 51xx контекст, 52xx CSS, 53xx сущности/экранирование, 54xx байты платформы
	CharLiquidInFence      Code = 5101
	CharCalcGlyph          Code = 5201
	CharCSSContent         Code = 5202
	CharCSSSelector        Code = 5203
	CharCSSCustomProperty  Code = 5204
	CharEntityInOutput     Code = 5301
	CharEntityInJSON       Code = 5302
	CharUnescapedOutput    Code = 5303
	CharBOM                Code = 5401
	CharSmartPunctCode     Code = 5402
	CharSmartPunctText     Code = 5403
	CharZeroWidthCode      Code = 5404
	CharZeroWidthText      Code = 5405
	CharReplacement        Code = 5406
	CharControl            Code = 5407
	CharNonASCIIIdentifier Code = 5408

	// Производительность
	PerfUnboundedLoop      Code = 6001
	PerfCatalogCount       Code = 6002
	PerfFilterChain        Code = 6003
	PerfConditionalNesting Code = 6004
	PerfLoopNesting        Code = 6005
	PerfImageWidth         Code = 6006
	PerfConcatChain        Code = 6007
	PerfLiquidBlockLength  Code = 6008

	// Требования Theme Store
	StoreExternalScript     Code = 8001
	StoreExternalStylesheet Code = 8002
	StoreExternalImport     Code = 8003
	StoreConsoleCall        Code = 8004
	StoreAlertCall          Code = 8005
	StoreDocumentWrite      Code = 8006

	// Движок
	EngInternal         Code = 7001
	EngFixNotIdempotent Code = 7002
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		LexUnterminatedFence:  "Unterminated fenced region",
		LexUnterminatedTag:    "Unterminated tag",
		LexUnterminatedOutput: "Unterminated output",
		LexEmptyTag:           "Empty tag",

		TagMismatchedClose: "Mismatched closing tag",
		TagUnclosed:        "Unclosed tag",
		TagUnexpectedClose: "Unexpected closing tag",
		TagMisplacedBranch: "Branch tag outside its block",
		TagDuplicateSchema: "More than one schema block",
		TagSchemaNotLast:   "Schema block is not last",
		TagNestingTooDeep:  "Nesting too deep",
		TagUnknown:         "Unknown tag",

		ExprUnknownObject:      "Unknown object",
		ExprUsedBeforeAssign:   "Variable used before assign",
		ExprSuspiciousObject:   "Suspicious object name",
		ExprHallucinatedFilter: "Hallucinated filter",
		ExprUnknownFilter:      "Unknown filter",
		ExprDeprecatedFilter:   "Deprecated filter",
		ExprFilterArity:        "Wrong number of filter arguments",
		ExprFilterArgType:      "Wrong filter argument type",
		ExprCStyleOperator:     "C-style operator in condition",
		ExprMalformed:          "Malformed expression",

		SchemaInvalidJSON:          "Invalid schema JSON",
		SchemaRangeStepCount:       "Range has too many steps",
		SchemaRangeStepTooSmall:    "Range step too small",
		SchemaDecimalPrecision:     "Too many decimal digits",
		SchemaDuplicateID:          "Duplicate setting id",
		SchemaUnknownType:          "Unknown setting type",
		SchemaAppBlockKey:          "App-block key in section schema",
		SchemaBlockLimit:           "Block limit too high",
		SchemaMissingName:          "Schema without name",
		SchemaMissingField:         "Setting is missing a required field",
		SchemaMissingLabel:         "Setting without label",
		SchemaRangeBounds:          "Invalid range bounds",
		SchemaSelectOptions:        "Invalid select options",
		SchemaPresetUnknownSetting: "Preset references undeclared setting",
		SchemaUndefinedSetting:     "Template uses undeclared setting",
		SchemaRootNotObject:        "Schema root is not an object",

		CharLiquidInFence:      "Template code inside isolated fence",
		CharCalcGlyph:          "Unicode operator inside calc()",
		CharCSSContent:         "Raw non-ASCII in CSS content",
		CharCSSSelector:        "Non-ASCII in CSS selector",
		CharCSSCustomProperty:  "Non-ASCII in custom property name",
		CharEntityInOutput:     "HTML entity inside output",
		CharEntityInJSON:       "HTML entity inside schema string",
		CharUnescapedOutput:    "User-controlled output without escaping",
		CharBOM:                "Byte order mark",
		CharSmartPunctCode:     "Typographic punctuation in code",
		CharSmartPunctText:     "Typographic punctuation in text",
		CharZeroWidthCode:      "Zero-width character in code",
		CharZeroWidthText:      "Zero-width character in text",
		CharReplacement:        "Unicode replacement character",
		CharControl:            "Control character",
		CharNonASCIIIdentifier: "Non-ASCII variable name",

		PerfUnboundedLoop:      "Unbounded catalog loop",
		PerfCatalogCount:       "Counting the whole catalog",
		PerfFilterChain:        "Filter chain too long",
		PerfConditionalNesting: "Conditionals nested too deep",
		PerfLoopNesting:        "Loops nested too deep",
		PerfImageWidth:         "Oversized image width",
		PerfConcatChain:        "String built with a long append chain",
		PerfLiquidBlockLength:  "{% liquid %} block too long",

		StoreExternalScript:     "External script",
		StoreExternalStylesheet: "External stylesheet",
		StoreExternalImport:     "External CSS @import",
		StoreConsoleCall:        "Console statement",
		StoreAlertCall:          "alert() call",
		StoreDocumentWrite:      "document.write() call",

		EngInternal:         "Internal analyzer failure",
		EngFixNotIdempotent: "Auto-fix not idempotent",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TAG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("EXP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SCH%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CHR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRF%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("ENG%04d", ic)
	case ic >= 8000 && ic < 9000:
		return fmt.Sprintf("STO%04d", ic)
	}
	return "E0000"
}

// ParseCode reverses ID ("EXP3004" -> ExprHallucinatedFilter).
func ParseCode(id string) (Code, error) {
	for c := range codeDescription {
		if c != UnknownCode && c.ID() == id {
			return c, nil
		}
	}
	return UnknownCode, fmt.Errorf("unknown diagnostic code %q", id)
}

// Category derives the producing validator from the code range.
func (c Code) Category() Category {
	switch ic := int(c); {
	case ic >= 1000 && ic < 3000:
		return CatStructure
	case ic >= 3000 && ic < 4000:
		return CatExpression
	case ic >= 4000 && ic < 5000:
		return CatSchema
	case ic >= 5000 && ic < 6000:
		return CatCharacterSafety
	case ic >= 6000 && ic < 7000:
		return CatPerformance
	case ic >= 7000 && ic < 8000:
		return CatEngine
	case ic >= 8000 && ic < 9000:
		return CatThemeStore
	}
	return CatUnknown
}

// Domain returns the character-safety sub-domain, DomNone for other categories.
func (c Code) Domain() Domain {
	switch ic := int(c); {
	case ic >= 5100 && ic < 5200:
		return DomContext
	case ic >= 5200 && ic < 5300:
		return DomCSS
	case ic >= 5300 && ic < 5400:
		return DomEntities
	case ic >= 5400 && ic < 5500:
		return DomPlatform
	}
	return DomNone
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
