// Package redis connects ykauth to a redis server and provides a per-key
// lock shared across processes.
//
// Several ykauth processes may verify OTPs against the same key directory,
// for example a PAM helper and a long running daemon. The in-process lock of
// otpkey only serialises goroutines of one process; Locker extends the same
// guarantee to every process talking to one redis server.
//
// # Configuration
//
// Config is populated from the environment by pkg/config:
//
//	YKAUTH_REDIS_URL              redis://:password@localhost:6379/0, empty disables redis
//	YKAUTH_REDIS_RETRY_ATTEMPTS   default 3
//	YKAUTH_REDIS_RETRY_INTERVAL   default 1s
//	YKAUTH_REDIS_CONNECT_TIMEOUT  default 10s
//	YKAUTH_LOCK_PREFIX            default ykauth:lock:
//	YKAUTH_LOCK_TTL               default 10s
//	YKAUTH_LOCK_WAIT              default 5s
//	YKAUTH_LOCK_RETRY_INTERVAL    default 25ms
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	manager, err := otpkey.NewManager(dir,
//		otpkey.WithDecrypter(otpcipher.AES{}),
//		otpkey.WithLocker(redis.NewLocker(client, cfg.Redis)),
//	)
//
// # Locking
//
// A lock is a key holding a random token, created with SET NX PX so it
// expires after LockTTL if its holder dies. Lock polls every
// LockRetry until the key is free, LockWait elapses (ErrLockTimeout) or the
// context is done. Release runs a compare-and-delete script so a holder whose
// lock already expired can not remove the lock of the next holder.
package redis
