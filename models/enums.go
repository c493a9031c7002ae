package models

import "errors"

type RecordSource string

const (
	RecordSourceCompany RecordSource = "company"
	RecordSourceDepot   RecordSource = "depot"
)

func ParseRecordSource(s string) (RecordSource, error) {
	switch s {
	case "company":
		return RecordSourceCompany, nil
	case "depot":
		return RecordSourceDepot, nil
	default:
		return "", errors.New("invalid record source")
	}
}

type BattleType string

const (
	BattleTypeLeaders    BattleType = "leaders"
	BattleTypePlatoons   BattleType = "platoons"
	BattleTypeSquads     BattleType = "squads"
	BattleTypeTeams      BattleType = "teams"
	BattleTypeDepots     BattleType = "depots"
	BattleTypeCommanders BattleType = "commanders"
	BattleTypeCompanies  BattleType = "companies"
)

func ParseBattleType(s string) (BattleType, error) {
	switch s {
	case "leaders":
		return BattleTypeLeaders, nil
	case "platoons":
		return BattleTypePlatoons, nil
	case "squads":
		return BattleTypeSquads, nil
	case "teams":
		return BattleTypeTeams, nil
	case "depots":
		return BattleTypeDepots, nil
	case "commanders":
		return BattleTypeCommanders, nil
	case "companies":
		return BattleTypeCompanies, nil
	default:
		return "", errors.New("invalid battle type")
	}
}

type FormulaStatus string

const (
	FormulaStatusDraft     FormulaStatus = "draft"
	FormulaStatusPublished FormulaStatus = "published"
)

type MetricKey string

const (
	MetricKeyLeads  MetricKey = "leads"
	MetricKeyPayins MetricKey = "payins"
	MetricKeySales  MetricKey = "sales"
)

func ParseMetricKey(s string) (MetricKey, error) {
	switch s {
	case "leads":
		return MetricKeyLeads, nil
	case "payins":
		return MetricKeyPayins, nil
	case "sales":
		return MetricKeySales, nil
	default:
		return "", errors.New("invalid metric key")
	}
}

type ParticipantRole string

const (
	ParticipantRolePlatoon ParticipantRole = "platoon"
	ParticipantRoleSquad   ParticipantRole = "squad"
	ParticipantRoleTeam    ParticipantRole = "team"
)

func ParseParticipantRole(s string) (ParticipantRole, error) {
	switch s {
	case "platoon":
		return ParticipantRolePlatoon, nil
	case "squad":
		return ParticipantRoleSquad, nil
	case "team":
		return ParticipantRoleTeam, nil
	default:
		return "", errors.New("invalid participant role")
	}
}

type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"
	UserRoleUser       UserRole = "user"
)

type WeekState string

const (
	WeekStateOpen      WeekState = "open"
	WeekStateFinalized WeekState = "finalized"
)
