package processor

import (
	"crew-radar/internal/model"
	"crew-radar/internal/textutil"
)

// Rule 是一条有序规则：文本命中任一关键词即得到 Result。
// Keywords 按词首匹配，Words 须整词命中，均为小写、已去重音。
type Rule[T any] struct {
	Keywords []string
	Words    []string
	Result   T
}

// RuleTable 按顺序求值，首个命中者胜出，均未命中返回 Default。
type RuleTable[T any] struct {
	Rules   []Rule[T]
	Default T
}

// Match 对已 Fold 的文本求值。
func (t RuleTable[T]) Match(folded string) T {
	for _, r := range t.Rules {
		if textutil.ContainsAny(folded, r.Keywords) || textutil.ContainsAnyWhole(folded, r.Words) {
			return r.Result
		}
	}
	return t.Default
}

// EmploymentRules 雇佣类型：daywork → rotational → seasonal → temporary/contract，默认 permanent。
var EmploymentRules = RuleTable[model.EmploymentType]{
	Rules: []Rule[model.EmploymentType]{
		{Keywords: []string{"daywork", "day work", "day-work", "daily"}, Result: model.EmploymentDaywork},
		{Keywords: []string{"rotational", "rotation"}, Result: model.EmploymentRotational},
		{Keywords: []string{"seasonal", "season"}, Result: model.EmploymentSeasonal},
		{Keywords: []string{"temporary", "relief", "fill in", "freelance"}, Words: []string{"temp"}, Result: model.EmploymentTemporary},
		{Keywords: []string{"contract"}, Result: model.EmploymentContract},
	},
	Default: model.EmploymentPermanent,
}

// DepartmentRules 部门：deck → interior → engineering → galley，默认 other。
var DepartmentRules = RuleTable[model.Department]{
	Rules: []Rule[model.Department]{
		{Keywords: []string{"deckhand", "bosun", "mate", "captain", "officer", "deck", "skipper"}, Result: model.DepartmentDeck},
		{Keywords: []string{"stewardess", "steward", "interior", "housekeeping", "butler"}, Result: model.DepartmentInterior},
		{Keywords: []string{"engineer", "mechanic", "eto", "technical"}, Result: model.DepartmentEngineering},
		{Keywords: []string{"chef", "cook", "galley", "kitchen"}, Result: model.DepartmentGalley},
	},
	Default: model.DepartmentOther,
}

// VesselRules 船型：sailing → catamaran → super yacht → expedition → chase boat，默认 motor_yacht。
var VesselRules = RuleTable[model.VesselType]{
	Rules: []Rule[model.VesselType]{
		{Keywords: []string{"sailing", "sail", "s/y"}, Words: []string{"sy"}, Result: model.VesselSailingYacht},
		{Keywords: []string{"catamaran"}, Result: model.VesselCatamaran},
		{Keywords: []string{"superyacht", "super yacht"}, Result: model.VesselSuperYacht},
		{Keywords: []string{"expedition", "explorer"}, Result: model.VesselExpedition},
		{Keywords: []string{"chase boat", "support vessel", "shadow vessel"}, Result: model.VesselChaseBoat},
	},
	Default: model.VesselMotorYacht,
}

// 职级从标题推断，仅作补充信息。
var positionLevelRules = RuleTable[string]{
	Rules: []Rule[string]{
		{Keywords: []string{"captain", "master", "chief", "head", "purser", "senior", "lead", "1st", "first", "bosun"}, Result: "senior"},
		{Keywords: []string{"2nd", "second", "3rd", "third", "junior", "assistant", "trainee"}, Result: "junior"},
	},
}
