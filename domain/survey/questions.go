package survey

// QuestionID is the canonical identifier of a survey question. The set of
// known identifiers is closed; headers that resolve to nothing are kept as
// raw keys in Response.Unmapped.
type QuestionID string

// QuestionKind describes the answer envelope of a known question.
type QuestionKind string

const (
	KindOrdinal     QuestionKind = "ordinal"
	KindBoolean     QuestionKind = "boolean"
	KindMultiSelect QuestionKind = "multiSelect"
	KindCategorical QuestionKind = "categorical"
	KindText        QuestionKind = "text"
	KindDate        QuestionKind = "date"
)

// Respondent attributes
const (
	QuestionTimestamp   QuestionID = "timestamp"
	QuestionCompanyName QuestionID = "company_name"
	QuestionPosition    QuestionID = "position"
	QuestionJobType     QuestionID = "job_type"
	QuestionGender      QuestionID = "gender"
	QuestionAge         QuestionID = "age"
	QuestionTenure      QuestionID = "tenure"
)

// Satisfaction questions of the current questionnaire
const (
	QuestionSalarySatisfaction        QuestionID = "salary_satisfaction"
	QuestionJobSatisfaction           QuestionID = "job_satisfaction"
	QuestionOpinionExpression         QuestionID = "opinion_expression"
	QuestionSupportiveCulture         QuestionID = "supportive_culture"
	QuestionJuniorEducation           QuestionID = "junior_education"
	QuestionLongTermEducation         QuestionID = "long_term_education"
	QuestionComplianceManagement      QuestionID = "compliance_management"
	QuestionFairEvaluation            QuestionID = "fair_evaluation"
	QuestionWorkEnvironment           QuestionID = "work_environment"
	QuestionEquipmentSupport          QuestionID = "equipment_support"
	QuestionCommunication             QuestionID = "communication"
	QuestionSupervisionQuality        QuestionID = "supervision_quality"
	QuestionCompensationFairness      QuestionID = "compensation_fairness"
	QuestionOvertimeBalance           QuestionID = "overtime_balance"
	QuestionEnvironmentImprovement    QuestionID = "environment_improvement"
	QuestionWorkloadDistribution      QuestionID = "workload_distribution"
	QuestionVacationFlexibility       QuestionID = "vacation_flexibility"
	QuestionPhysicalHealth            QuestionID = "physical_health"
	QuestionMentalHealth              QuestionID = "mental_health"
	QuestionHarassmentPrevention      QuestionID = "harassment_prevention"
	QuestionCompanyGrowth             QuestionID = "company_growth"
	QuestionEmployeeFocusedManagement QuestionID = "employee_focused_management"
	QuestionGoalAchievement           QuestionID = "goal_achievement"
	QuestionCareerSatisfaction        QuestionID = "career_satisfaction"
	QuestionCompanyPride              QuestionID = "company_pride"
	QuestionFiveYearCommitment        QuestionID = "five_year_commitment"
)

// Satisfaction questions that only exist in the legacy questionnaire
const (
	QuestionWorkLifeBalance        QuestionID = "work_life_balance"
	QuestionWorkplaceRelationships QuestionID = "workplace_relationships"
	QuestionEquipmentFacilities    QuestionID = "equipment_facilities"
	QuestionSkillUtilization       QuestionID = "skill_utilization"
	QuestionWorkload               QuestionID = "workload"
	QuestionAutonomy               QuestionID = "autonomy"
	QuestionGrowthOpportunities    QuestionID = "growth_opportunities"
	QuestionCareerDevelopment      QuestionID = "career_development"
	QuestionTrainingPrograms       QuestionID = "training_programs"
	QuestionPromotionFairness      QuestionID = "promotion_fairness"
	QuestionCompensation           QuestionID = "compensation"
	QuestionBenefits               QuestionID = "benefits"
	QuestionEvaluationSystem       QuestionID = "evaluation_system"
	QuestionJobSecurity            QuestionID = "job_security"
	QuestionManagementTrust        QuestionID = "management_trust"
	QuestionCompanyDirection       QuestionID = "company_direction"
	QuestionOrganizationalCulture  QuestionID = "organizational_culture"
	QuestionOverallSatisfaction    QuestionID = "overall_satisfaction"
	QuestionRecommendation         QuestionID = "recommendation"
)

// Group questions, multi-select and free text
const (
	QuestionGroupCompaniesKnown      QuestionID = "group_companies_known"
	QuestionGroupEmployeeInteraction QuestionID = "group_employee_interaction"
	QuestionHoldingsAwareness        QuestionID = "holdings_awareness"
	QuestionHiringReasons            QuestionID = "hiring_reasons"
	QuestionMagazineFeedback         QuestionID = "magazine_feedback"
	QuestionConcerns                 QuestionID = "concerns"
	QuestionHarassmentWitness        QuestionID = "harassment_witness"
	QuestionHarassmentDetails        QuestionID = "harassment_details"
	QuestionWorkplacePositives       QuestionID = "workplace_positives"
	QuestionImprovementSuggestions   QuestionID = "improvement_suggestions"
	QuestionDXOpportunities          QuestionID = "dx_opportunities"
)

// SatisfactionQuestions lists every ordinal question in report order.
var SatisfactionQuestions = []QuestionID{
	QuestionWorkEnvironment, QuestionWorkLifeBalance, QuestionWorkplaceRelationships,
	QuestionEquipmentFacilities, QuestionJobSatisfaction, QuestionSkillUtilization,
	QuestionWorkload, QuestionAutonomy, QuestionGrowthOpportunities, QuestionCareerDevelopment,
	QuestionTrainingPrograms, QuestionPromotionFairness, QuestionCompensation, QuestionBenefits,
	QuestionEvaluationSystem, QuestionJobSecurity, QuestionManagementTrust, QuestionCommunication,
	QuestionCompanyDirection, QuestionOrganizationalCulture, QuestionOverallSatisfaction,
	QuestionRecommendation,
	QuestionSalarySatisfaction, QuestionOpinionExpression, QuestionSupportiveCulture,
	QuestionJuniorEducation, QuestionLongTermEducation, QuestionComplianceManagement,
	QuestionFairEvaluation, QuestionEquipmentSupport, QuestionSupervisionQuality,
	QuestionCompensationFairness, QuestionOvertimeBalance, QuestionEnvironmentImprovement,
	QuestionWorkloadDistribution, QuestionVacationFlexibility, QuestionPhysicalHealth,
	QuestionMentalHealth, QuestionHarassmentPrevention, QuestionCompanyGrowth,
	QuestionEmployeeFocusedManagement, QuestionGoalAchievement, QuestionCareerSatisfaction,
	QuestionCompanyPride, QuestionFiveYearCommitment,
}

// ChoiceQuestions are tallied with multiple-choice analysis.
var ChoiceQuestions = []QuestionID{
	QuestionCompanyName, QuestionPosition, QuestionJobType, QuestionGender, QuestionAge,
	QuestionTenure, QuestionGroupCompaniesKnown, QuestionGroupEmployeeInteraction,
	QuestionHoldingsAwareness, QuestionHiringReasons, QuestionMagazineFeedback,
	QuestionHarassmentWitness,
}

// TextQuestions are free-text questions run through keyword categorization.
var TextQuestions = []QuestionID{
	QuestionImprovementSuggestions, QuestionConcerns, QuestionWorkplacePositives,
	QuestionHarassmentDetails, QuestionDXOpportunities,
}

var questionKinds = buildQuestionKinds()

func buildQuestionKinds() map[QuestionID]QuestionKind {
	kinds := map[QuestionID]QuestionKind{
		QuestionTimestamp:                KindDate,
		QuestionGroupEmployeeInteraction: KindBoolean,
		QuestionHoldingsAwareness:        KindBoolean,
		QuestionHiringReasons:            KindMultiSelect,
		QuestionMagazineFeedback:         KindMultiSelect,
	}
	for _, id := range SatisfactionQuestions {
		kinds[id] = KindOrdinal
	}
	for _, id := range TextQuestions {
		kinds[id] = KindText
	}
	for _, id := range ChoiceQuestions {
		if _, ok := kinds[id]; !ok {
			kinds[id] = KindCategorical
		}
	}
	return kinds
}

// Kind returns the answer kind of a known question.
func (q QuestionID) Kind() (QuestionKind, bool) {
	k, ok := questionKinds[q]
	return k, ok
}

// Known reports whether q belongs to the closed identifier set.
func (q QuestionID) Known() bool {
	_, ok := questionKinds[q]
	return ok
}

// IsOrdinal reports whether q is a 5-point satisfaction question.
func (q QuestionID) IsOrdinal() bool {
	return questionKinds[q] == KindOrdinal
}

func (q QuestionID) String() string { return string(q) }
