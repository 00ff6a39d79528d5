package gamify

// Actions a user can be rewarded for.
const (
	ActionCompleteModule    = "complete_module"
	ActionCompleteQuiz      = "complete_quiz"
	ActionPassQuiz          = "pass_quiz"
	ActionStartLearningPath = "start_learning_path"

	ActionCreateResource     = "create_resource"
	ActionCreateLearningPath = "create_learning_path"
	ActionRateResource       = "rate_resource"
	ActionCreatePost         = "create_post"
	ActionCreateComment      = "create_comment"

	ActionReceiveRating5Star    = "receive_rating_5_star"
	ActionResourceUsed100Times  = "resource_used_100_times"
	ActionDailyLogin            = "daily_login"
	ActionDailyStreak7Days      = "daily_streak_7_days"
	ActionDailyStreak30Days     = "daily_streak_30_days"
	ActionCompleteChallenge     = "complete_challenge"
	ActionParticipateEvent      = "participate_event"
	ActionWinLeaderboardWeekly  = "win_leaderboard_weekly"
	ActionEarnBadge             = "earn_badge"
)

// Badge keys.
const (
	BadgeFirstModule       = "first_module"
	BadgeFirstQuiz         = "first_quiz"
	BadgeFirstLearningPath = "first_learning_path"
	BadgeFirstLogin        = "first_login"
	BadgeQuizMaster        = "quiz_master"
	BadgeModuleExplorer    = "module_explorer"
	BadgeStreak30Days      = "streak_30_days"
	BadgePathCompleter     = "path_completer"
	BadgeSubjectMaster     = "subject_master"
)

// Milestone thresholds.
const (
	moduleExplorerTarget = 5
	quizMasterTarget     = 10
	streakBadgeTarget    = 30
)

type (
	BadgeRule struct {
		Name        string
		Description string
	}

	// Rules holds the static reward tables. They are immutable configuration:
	// loaded once at process start and passed by reference into the services.
	Rules struct {
		Points map[string]int
		XP     map[string]int
		Badges map[string]BadgeRule
	}
)

// badgeTriggers maps an action to the badge it directly qualifies for.
var badgeTriggers = map[string]string{
	ActionCompleteModule:     BadgeFirstModule,
	ActionCompleteQuiz:       BadgeFirstQuiz,
	ActionCreateLearningPath: BadgeFirstLearningPath,
	ActionDailyLogin:         BadgeFirstLogin,
}

// DefaultRules returns the platform reward tables.
func DefaultRules() Rules {
	return Rules{
		Points: map[string]int{
			ActionCompleteModule:    50,
			ActionCompleteQuiz:      30,
			ActionPassQuiz:          50,
			ActionStartLearningPath: 10,

			ActionCreateResource:     25,
			ActionCreateLearningPath: 100,
			ActionRateResource:       5,
			ActionCreatePost:         15,
			ActionCreateComment:      10,

			ActionReceiveRating5Star:   20,
			ActionResourceUsed100Times: 100,
			ActionDailyLogin:           5,

			ActionCompleteChallenge:    200,
			ActionParticipateEvent:     50,
			ActionWinLeaderboardWeekly: 300,

			ActionEarnBadge: 25,
		},
		XP: map[string]int{
			ActionCompleteModule:     100,
			ActionPassQuiz:           150,
			ActionCreateResource:     50,
			ActionCreateLearningPath: 200,
			ActionCompleteChallenge:  500,
			ActionDailyStreak7Days:   200,
			ActionDailyStreak30Days:  500,
		},
		Badges: map[string]BadgeRule{
			BadgeFirstModule: {
				Name:        "First Module Completed",
				Description: "Awarded for completing your first module.",
			},
			BadgeFirstQuiz: {
				Name:        "First Quiz Completed",
				Description: "Awarded for completing your first quiz.",
			},
			BadgeFirstLearningPath: {
				Name:        "First Learning Path Created",
				Description: "Awarded for creating your first learning path.",
			},
			BadgeFirstLogin: {
				Name:        "Welcome Aboard!",
				Description: "Awarded on your first login.",
			},
			BadgeQuizMaster: {
				Name:        "Quiz Master",
				Description: "Awarded for completing 10 quizzes with perfect scores.",
			},
			BadgeModuleExplorer: {
				Name:        "Module Explorer",
				Description: "Awarded for completing 5 different modules.",
			},
			BadgeStreak30Days: {
				Name:        "Monthly Master",
				Description: "Awarded for maintaining a 30-day learning streak.",
			},
			BadgePathCompleter: {
				Name:        "Pathfinder",
				Description: "Awarded for completing your first learning path.",
			},
			BadgeSubjectMaster: {
				Name:        "Subject Master",
				Description: "Awarded for completing all modules in a subject category.",
			},
		},
	}
}
