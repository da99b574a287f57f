package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
	"github.com/jakechorley/clinic-allocator/pkg/intake"
)

// DatabaseURLEnv is read when the config file does not set databaseURL
const DatabaseURLEnv = "DATABASE_URL"

// ResponsesConfig locates the volunteer sign-up form responses
type ResponsesConfig struct {
	SheetID string `yaml:"sheetID,omitempty" validate:"required_without=CSVPath"`
	Tab     string `yaml:"tab,omitempty" validate:"required_with=SheetID"`
	CSVPath string `yaml:"csvPath,omitempty" validate:"required_without=SheetID"`

	// Since drops form submissions made before it (YYYY-MM-DD)
	Since string `yaml:"since,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ResultsConfig locates where allocation results are published
type ResultsConfig struct {
	SheetID string `yaml:"sheetID,omitempty"`
}

// ClinicConfig defines one clinic and its constraint table
type ClinicConfig struct {
	Code           string `yaml:"code" validate:"required"`
	Name           string `yaml:"name" validate:"required"`
	MaxDefault     int    `yaml:"maxDefault" validate:"min=0"`
	MaxTranslators int    `yaml:"maxTranslators" validate:"min=0"`

	// YearMax is indexed Undergrad, MS1..MS4
	YearMax []int `yaml:"yearMax" validate:"len=5,dive,min=0"`

	// YearGroups lists comma-separated years sharing one quota, e.g. "2,3,4" or "u"
	YearGroups []string `yaml:"yearGroups" validate:"required,min=1"`

	Elective string `yaml:"elective,omitempty"`
	TieBreak string `yaml:"tieBreak,omitempty"`

	// Dates and Schedule restrict the dates the clinic runs. Schedule is a bounded RRULE.
	Dates    []string `yaml:"dates,omitempty"`
	Schedule string   `yaml:"schedule,omitempty"`
}

// PreassignmentConfig fixes a volunteer to a clinic on a date before allocation
type PreassignmentConfig struct {
	// Volunteer is matched against email first, then name
	Volunteer string `yaml:"volunteer" validate:"required"`
	Clinic    string `yaml:"clinic" validate:"required"`
	Date      string `yaml:"date" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	Responses      ResponsesConfig       `yaml:"responses"`
	Results        ResultsConfig         `yaml:"results,omitempty"`
	Seed           uint64                `yaml:"seed,omitempty"`
	DisableFill    bool                  `yaml:"disableFill,omitempty"`
	MetricsFile    string                `yaml:"metricsFile,omitempty"`
	DatabaseURL    string                `yaml:"databaseURL,omitempty"`
	Clinics        []ClinicConfig        `yaml:"clinics" validate:"required,min=1,dive"`
	Preassignments []PreassignmentConfig `yaml:"preassignments,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration with an environment suffix.
// For example, env="test" will look for "clinic_config.test.yaml".
// A .env file in the working directory is loaded first so DATABASE_URL can live there.
func LoadWithEnv(env string) (*Config, error) {
	if err := loadDotEnv(env); err != nil {
		return nil, err
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv(DatabaseURLEnv)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the clinic constraint tables
// and the schedule rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool)
	for i, clinic := range cfg.Clinics {
		if seen[clinic.Code] {
			return fmt.Errorf("duplicate clinic code %q in clinics[%d]", clinic.Code, i)
		}
		seen[clinic.Code] = true

		for _, date := range clinic.Dates {
			if _, ok := intake.NormaliseDateKey(date); !ok {
				return fmt.Errorf("clinics[%d] has invalid date %q, expected M/D with an optional suffix like (PM)", i, date)
			}
		}
		if clinic.Schedule != "" {
			if _, err := expandSchedule(clinic.Schedule); err != nil {
				return fmt.Errorf("invalid schedule in clinics[%d]: %w", i, err)
			}
		}
	}

	constraints, err := cfg.Constraints()
	if err != nil {
		return err
	}
	for i, c := range constraints {
		if err := c.Validate(cfg.Clinics[i].Code); err != nil {
			return err
		}
	}

	for i, pre := range cfg.Preassignments {
		if !seen[pre.Clinic] {
			return fmt.Errorf("preassignments[%d] references unknown clinic %q", i, pre.Clinic)
		}
		if _, ok := intake.NormaliseDateKey(pre.Date); !ok {
			return fmt.Errorf("preassignments[%d] has invalid date %q", i, pre.Date)
		}
	}

	return nil
}

// ClinicDefinitions returns the clinics in configuration order
func (c *Config) ClinicDefinitions() []model.ClinicDefinition {
	clinics := make([]model.ClinicDefinition, len(c.Clinics))
	for i, clinic := range c.Clinics {
		clinics[i] = model.ClinicDefinition{Code: clinic.Code, Name: clinic.Name}
	}
	return clinics
}

// ClinicIndex returns the position of the clinic with the code, or -1
func (c *Config) ClinicIndex(code string) int {
	for i, clinic := range c.Clinics {
		if strings.EqualFold(clinic.Code, code) {
			return i
		}
	}
	return -1
}

// Constraints converts the clinic tables to allocator constraints, in clinic order.
// Enum and year group parse failures are returned as *allocator.ConfigurationError.
func (c *Config) Constraints() ([]allocator.ClinicConstraints, error) {
	result := make([]allocator.ClinicConstraints, len(c.Clinics))

	for i, clinic := range c.Clinics {
		elective, err := model.ParseElectiveMode(clinic.Elective)
		if err != nil {
			return nil, &allocator.ConfigurationError{Clinic: clinic.Code, Reason: err.Error()}
		}
		tieBreak, err := model.ParseTieBreak(clinic.TieBreak)
		if err != nil {
			return nil, &allocator.ConfigurationError{Clinic: clinic.Code, Reason: err.Error()}
		}

		constraints := allocator.ClinicConstraints{
			MaxDefault:     clinic.MaxDefault,
			MaxTranslators: clinic.MaxTranslators,
			Elective:       elective,
			TieBreak:       tieBreak,
		}
		if len(clinic.YearMax) != model.NumYears {
			return nil, &allocator.ConfigurationError{Clinic: clinic.Code, Reason: fmt.Sprintf("yearMax needs %d entries, got %d", model.NumYears, len(clinic.YearMax))}
		}
		copy(constraints.YearMax[:], clinic.YearMax)

		for _, group := range clinic.YearGroups {
			years, err := parseYearGroup(group)
			if err != nil {
				return nil, &allocator.ConfigurationError{Clinic: clinic.Code, Reason: err.Error()}
			}
			constraints.YearGroups = append(constraints.YearGroups, years)
		}

		result[i] = constraints
	}

	return result, nil
}

// OfferedDates returns the date-keys each restricted clinic runs on, keyed by clinic index.
// Configured dates are normalised to response date-key form and deduplicated.
// Clinics with neither dates nor a schedule are left out and offer every date.
func (c *Config) OfferedDates() (map[int][]string, error) {
	offered := make(map[int][]string)

	for i, clinic := range c.Clinics {
		if len(clinic.Dates) == 0 && clinic.Schedule == "" {
			continue
		}

		candidates := make([]string, 0, len(clinic.Dates))
		for _, date := range clinic.Dates {
			key, ok := intake.NormaliseDateKey(date)
			if !ok {
				return nil, fmt.Errorf("invalid date %q for clinic %s", date, clinic.Code)
			}
			candidates = append(candidates, key)
		}
		if clinic.Schedule != "" {
			scheduled, err := expandSchedule(clinic.Schedule)
			if err != nil {
				return nil, fmt.Errorf("invalid schedule for clinic %s: %w", clinic.Code, err)
			}
			candidates = append(candidates, scheduled...)
		}

		seenDate := make(map[string]bool)
		var dates []string
		for _, date := range candidates {
			if !seenDate[date] {
				seenDate[date] = true
				dates = append(dates, date)
			}
		}
		offered[i] = dates
	}

	return offered, nil
}

// parseYearGroup parses "2,3,4" style groups. "u" and "undergrad" mean Undergrad.
// Out of range numbers are passed through for the allocator to reject.
func parseYearGroup(group string) ([]model.Year, error) {
	var years []model.Year
	for _, token := range strings.Split(group, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		switch token {
		case "":
			continue
		case "u", "undergrad":
			years = append(years, model.YearUndergrad)
			continue
		}

		n, err := strconv.Atoi(strings.TrimPrefix(token, "ms"))
		if err != nil {
			return nil, fmt.Errorf("year group %q contains unknown year %q", group, token)
		}
		years = append(years, model.Year(n))
	}
	return years, nil
}

// expandSchedule expands a bounded RRULE into M/D date-keys
func expandSchedule(schedule string) ([]string, error) {
	opt, err := rrule.StrToROption(schedule)
	if err != nil {
		return nil, err
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, fmt.Errorf("schedule %q must set COUNT or UNTIL", schedule)
	}
	if opt.Dtstart.IsZero() {
		return nil, fmt.Errorf("schedule %q must set DTSTART", schedule)
	}

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}

	occurrences := rule.All()
	dates := make([]string, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dates = append(dates, fmt.Sprintf("%d/%d", int(occurrence.Month()), occurrence.Day()))
	}
	return dates, nil
}

// loadDotEnv loads .env.<env> then .env, without overriding variables already set.
// Missing files are skipped; a file that exists but does not parse is an error.
func loadDotEnv(env string) error {
	candidates := []string{".env"}
	if env != "" {
		candidates = append([]string{".env." + env}, candidates...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// findConfigFile searches for clinic_config.yaml in current directory and home directory.
// If env is provided, it adds it as an extension (e.g., "clinic_config.test.yaml").
func findConfigFile(env string) (string, error) {
	configFileName := "clinic_config.yaml"
	if env != "" {
		configFileName = "clinic_config." + env + ".yaml"
	}
	return findFile(configFileName)
}

// findFile returns the file from the working directory, falling back to the home directory
func findFile(fileName string) (string, error) {
	if _, err := os.Stat(fileName); err == nil {
		return fileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, fileName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", fileName)
}
