package config

import "github.com/hyperworkchat/hyperwork/internal/apperr"

var (
	errConfigOption = &apperr.Error{
		Message: "config option error",
	}

	errConfigValidation = &apperr.Error{
		Message: "config validation error",
	}

	errReadConfig = &apperr.Error{
		Message: "reading config file failed",
	}

	errWriteConfig = &apperr.Error{
		Message: "writing default config failed",
	}

	errDecodeConfig = &apperr.Error{
		Message: "decoding config failed",
	}

	errLoadEnvFile = &apperr.Error{
		Message: "loading %s failed",
	}

	errInvalidCLIDuration = &apperr.Error{
		Message: "invalid %s duration: %v",
	}

	errBreakTooLong = &apperr.Error{
		Message: "break duration (%v) must be less than work duration (%v)",
	}

	errInvalidDuration = &apperr.Error{
		Message: "%s duration must be between %v and %v",
	}

	errInvalidDelay = &apperr.Error{
		Message: "auto break delay must be between 0s and %v",
	}

	errInvalidPoints = &apperr.Error{
		Message: "paused points (%d) must be between 0 and full points (%d)",
	}

	errUnknownDriver = &apperr.Error{
		Message: "unknown %s driver: %q",
	}

	errMissingDSN = &apperr.Error{
		Message: "database.dsn is required for the postgres driver",
	}

	errMissingRedisAddr = &apperr.Error{
		Message: "redis.addr is required for the redis realtime driver",
	}

	errMissingSecret = &apperr.Error{
		Message: "auth.jwt_secret must be at least %d characters",
	}

	errInvalidTTL = &apperr.Error{
		Message: "auth.token_ttl must be positive",
	}

	errInvalidStaleAfter = &apperr.Error{
		Message: "jobs.stale_after (%v) must exceed the work duration (%v)",
	}

	errInvalidColor = &apperr.Error{
		Message: "%s color must be a valid hex color code (e.g. #FF0000), got %s",
	}
)
