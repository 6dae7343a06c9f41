package natives

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"eva/runtime"
)

// RegisterAuth wires `hash-password`, `verify-password`, `jwt-sign`, and
// `jwt-verify` onto globals, grounded on
// senapati484-flowa/pkg/eval/auth_helpers.go. Eva has no map literal, so the
// JWT claims payload is carried as a JSON-object string rather than a native
// struct; `jwt-sign`/`jwt-verify` marshal/unmarshal it at the boundary.
func RegisterAuth(globals *runtime.Globals) {
	globals.RegisterNativeDoc("hash-password", "(hash-password plaintext) -> bcrypt hash string", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("hash-password", 1, len(args))
		}
		password, err := wantString("hash-password", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: string(hashed)}), nil
	})

	globals.RegisterNativeDoc("verify-password", "(verify-password plaintext hash) -> true/false", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return runtime.Value{}, arityError("verify-password", 2, len(args))
		}
		password, err := wantString("verify-password", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		hash, err := wantString("verify-password", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}
		ok := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		return runtime.Bool(ok), nil
	})

	globals.RegisterNativeDoc("jwt-sign", "(jwt-sign json-claims expires-in) -> signed JWT string", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return runtime.Value{}, arityError("jwt-sign", 2, len(args))
		}
		payloadJSON, err := wantString("jwt-sign", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		expiresIn, err := wantString("jwt-sign", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}

		var claims jwt.MapClaims
		if err := json.Unmarshal([]byte(payloadJSON), &claims); err != nil {
			return runtime.Value{}, fmt.Errorf("jwt-sign: invalid payload JSON: %w", err)
		}
		duration, err := time.ParseDuration(expiresIn)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("jwt-sign: invalid duration: %w", err)
		}
		claims["exp"] = time.Now().Add(duration).Unix()

		secret := os.Getenv("EVA_JWT_SECRET")
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: signed}), nil
	})

	globals.RegisterNativeDoc("jwt-verify", "(jwt-verify token) -> JSON claims string or error", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("jwt-verify", 1, len(args))
		}
		tokenString, err := wantString("jwt-verify", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		secret := os.Getenv("EVA_JWT_SECRET")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return runtime.Value{}, err
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return runtime.Value{}, fmt.Errorf("jwt-verify: invalid token")
		}
		out, err := json.Marshal(claims)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: string(out)}), nil
	})
}
