// Package ratelimiter throttles repeated OTP failures with a token bucket.
//
// Every rejected verification for a public id consumes one token from the
// bucket of that id. Once the bucket is empty further attempts are refused
// until the bucket refills, which blunts online guessing against a single
// key. A successful verification empties the failure history.
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewFailureLimiter(store, ratelimiter.FailureConfig{
//		MaxFailures: 5,
//		Window:      time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//
//	manager, err := otpkey.NewManager(dir, otpkey.WithLimiter(limiter))
//
// The lower level Bucket can be used on its own:
//
//	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: time.Second,
//	})
//	res, err := bucket.Allow(ctx, "key")
//	if !res.Allowed() {
//		wait := res.RetryAfter()
//	}
//
// MemoryStore keeps buckets in process memory and removes buckets that were
// not touched for an hour. It is safe for concurrent use.
package ratelimiter
