package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage engines
const (
	EngineMemory   = "memory"
	EngineBolt     = "bolt"
	EngineFirebase = "firebase"
)

// Authentication providers
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

type Config struct {
	AppName          string
	Env              string
	Build            string
	Debug            bool
	TestMode         bool
	SecretKey        string
	WorkDir          string
	DefaultFromEmail mail.Address
	RollbarToken     string
	SendgridAPIKey   string

	Server struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	Database struct {
		Engine string // memory | bolt | firebase
		Path   string // bolt file
		URL    string // firebase realtime database URL
	}

	Firebase struct {
		CredentialsFile string
		CredentialsJSON string
		APIKey          string // web API key, used for password sign-in
	}

	Auth struct {
		Provider string // local | firebase
	}

	School struct {
		MinGrade        int
		MaxGrade        int
		DefaultSubjects []string
	}
}

// NewConfig loads the configuration for the current ENV (DEV by default) from the environment
// and an optional config/.env.<env> file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Alama")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "n7b&k1q#x4d!0zc+v9w$e2r)y5u(i8o*p3a%s6f^g-h=j_l")
	v.SetDefault("defaultFromEmailName", "Alama")
	v.SetDefault("defaultFromEmailAddress", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("serverDisableReqLogs", false)

	v.SetDefault("databaseEngine", EngineBolt)
	v.SetDefault("databasePath", "alama.db")
	v.SetDefault("databaseUrl", "")

	v.SetDefault("firebaseCredentialsFile", "")
	v.SetDefault("firebaseCredentialsJson", "")
	v.SetDefault("firebaseApiKey", "")

	v.SetDefault("authProvider", AuthLocal)

	v.SetDefault("schoolMinGrade", 1)
	v.SetDefault("schoolMaxGrade", 13)
	v.SetDefault("schoolDefaultSubjects", "Mathematics,Science,English,Sinhala,History,Geography,ICT")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("serverDisableReqLogs", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:   v.GetString("appName"),
		Env:       env,
		Build:     v.GetString("build"),
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		SecretKey: v.GetString("secretKey"),
		WorkDir:   workDir,
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromEmailName"),
			Address: v.GetString("defaultFromEmailAddress"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
	}

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Server.DisableReqLogs = v.GetBool("serverDisableReqLogs")

	conf.Database.Engine = strings.ToLower(v.GetString("databaseEngine"))
	conf.Database.Path = v.GetString("databasePath")
	conf.Database.URL = v.GetString("databaseUrl")

	conf.Firebase.CredentialsFile = v.GetString("firebaseCredentialsFile")
	conf.Firebase.CredentialsJSON = v.GetString("firebaseCredentialsJson")
	conf.Firebase.APIKey = v.GetString("firebaseApiKey")

	conf.Auth.Provider = strings.ToLower(v.GetString("authProvider"))

	conf.School.MinGrade = v.GetInt("schoolMinGrade")
	conf.School.MaxGrade = v.GetInt("schoolMaxGrade")
	for _, name := range strings.Split(v.GetString("schoolDefaultSubjects"), ",") {
		if name = CleanString(name); name != "" {
			conf.School.DefaultSubjects = append(conf.School.DefaultSubjects, name)
		}
	}

	return conf
}

// Grades lists every grade taught, lowest first.
func (c *Config) Grades() []int {
	if c.School.MaxGrade < c.School.MinGrade {
		return nil
	}
	grades := make([]int, 0, c.School.MaxGrade-c.School.MinGrade+1)
	for g := c.School.MinGrade; g <= c.School.MaxGrade; g++ {
		grades = append(grades, g)
	}
	return grades
}
