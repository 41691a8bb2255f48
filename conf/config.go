package conf

/*
   Package conf wraps viper to provide configuration for the EDI fixture
   tooling. Values come from an env-format file when one is present, and
   fall back to process environment variables otherwise.

   Assumptions:
   1. The configuration file is an env file named local.env
   2. Once loaded, configuration stays immutable for the lifetime of the
      process (tests are the exception, via SetEnv/UnsetEnv)
*/

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// An instance of the viper struct holding the loaded configuration. Only
// made accessible through GetEnv, LookupEnv, SetEnv and UnsetEnv.
var envVars viper.Viper

const (
	configgood    uint8 = 0
	configbad     uint8 = 1
	noconfigfound uint8 = 2
)

var state uint8 = configgood

func setup(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	// Viper is lazy, do the read and parse of the config file
	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}
	return v
}

func init() {
	// Possible config file locations: in-repo defaults and deployed env.
	locations := []string{
		"config",
		"/etc/edi-fixtures",
	}

	if success, loc := findEnv(locations); success {
		envVars = *setup(loc)
	} else {
		state = noconfigfound
	}
}

func findEnv(locations []string) (bool, string) {
	if _, err := os.Stat(locations[0] + "/local.env"); err == nil {
		return true, locations[0]
	}
	if len(locations) == 1 {
		return false, ""
	}
	return findEnv(locations[1:])
}

// GetEnv retrieves the value stored in conf. If it does not exist, an empty
// string is returned.
func GetEnv(key string) string {
	if state == configgood {
		value := envVars.GetString(key)

		// Even when the config file loaded, a key missing from conf may
		// still exist in the environment. Copy it over to conf to prevent
		// additional OS calls.
		if value == "" {
			v, ok := os.LookupEnv(key)
			if ok {
				value = v
				var _ = SetEnv(&testing.T{}, key, v)
			}
		}
		return value
	}

	return os.Getenv(key)
}

// LookupEnv augments os.LookupEnv to consult the viper struct first.
func LookupEnv(key string) (string, bool) {
	if state == configgood {
		if value := envVars.Get(key); value != nil && value != "" {
			return value.(string), true
		}
		if v, exist := os.LookupEnv(key); exist {
			var _ = SetEnv(&testing.T{}, key, v)
			return v, exist
		}
		return "", false
	}

	return os.LookupEnv(key)
}

// SetEnv adds a key/value into conf. This should only be used in this
// package itself or in tests; the protect parameter exists so callers
// knowingly use it in an appropriate scope.
func SetEnv(protect *testing.T, key string, value string) error {
	var err error
	if state == configgood {
		envVars.Set(key, value)
	} else {
		err = os.Setenv(key, value)
	}
	return err
}

// UnsetEnv "unsets" a variable. Like SetEnv, test scope only.
func UnsetEnv(protect *testing.T, key string) error {
	if state == configgood {
		envVars.Set(key, "")
	}
	// The environment copy has to go too, since GetEnv falls through to it.
	return os.Unsetenv(key)
}
