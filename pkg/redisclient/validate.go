package redisclient

import "fmt"

func checkDB(db int) error {
	if db < 0 {
		return fmt.Errorf("%w: negative database index %d", ErrInvalidArgument, db)
	}
	return nil
}

func checkKey(db int, key string) error {
	if err := checkDB(db); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	return nil
}

func checkMembers(db int, key string, members []string) error {
	if err := checkKey(db, key); err != nil {
		return err
	}
	if len(members) == 0 {
		return fmt.Errorf("%w: no members", ErrInvalidArgument)
	}
	for _, m := range members {
		if err := checkNotEmpty("member", m); err != nil {
			return err
		}
	}
	return nil
}

func checkNotEmpty(what, v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidArgument, what)
	}
	return nil
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
