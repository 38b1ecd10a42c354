package a

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

func lookup(err error) string {
	if err == redis.Nil { // want `compare with errors.Is instead: err == redis.Nil`
		return "missing"
	}
	if redis.Nil != err { // want `compare with errors.Is instead: redis.Nil != err`
		return "failed"
	}
	if errors.Is(err, redis.Nil) {
		return "missing"
	}
	return "ok"
}

type local struct{ Nil error }

func other(err error, l local) bool {
	return err == l.Nil
}
