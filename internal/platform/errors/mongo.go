package errors

// Mongo-specific helpers for mapping mongo-driver errors to project ErrorCode and retry semantics

import (
	stderrs "errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsMongoNoDocuments reports whether the error is the "no documents in
// result" sentinel
func IsMongoNoDocuments(err error) bool { return stderrs.Is(Root(err), mongo.ErrNoDocuments) }

// IsMongoDuplicateKey reports whether the error is a unique index violation
func IsMongoDuplicateKey(err error) bool { return mongo.IsDuplicateKeyError(Root(err)) }

// IsMongoTransient reports whether the error is one the driver marks
// retryable (network failures, primary stepdowns, timeouts)
func IsMongoTransient(err error) bool {
	root := Root(err)
	if root == nil {
		return false
	}
	return mongo.IsNetworkError(root) || mongo.IsTimeout(root)
}

// MongoErrorCode maps a mongo-driver error to an ErrorCode with an ok flag.
// !ok means err carried no mongo-specific signal; caller may fall back to
// generic handling
func MongoErrorCode(err error) (ErrorCode, bool) {
	switch {
	case err == nil:
		return ErrorCodeUnknown, false
	case IsMongoNoDocuments(err):
		return ErrorCodeNotFound, true
	case IsMongoDuplicateKey(err):
		return ErrorCodeDuplicateKey, true
	case IsMongoTransient(err):
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromMongo wraps a mongo error with a mapped ErrorCode and message.
// If err is nil, returns nil
func FromMongo(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, _ := MongoErrorCode(err)
	return Wrap(err, code, msg)
}
