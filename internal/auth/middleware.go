package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// messageFormat is what wallets sign: the nonce and unix timestamp bound
// into one line. Keep in sync with the frontend signer.
const messageFormat = "Dogepump Auth:%s:%d"

const (
	// maxTokenAge is how far in the past a token timestamp may lie
	maxTokenAge = 300 * time.Second
	// maxClockSkew is how far in the future a token timestamp may lie
	maxClockSkew = 60 * time.Second
)

// Middleware authenticates requests by recovering the signer of an
// EIP-191 personal-sign token.
type Middleware struct {
	mu          sync.Mutex
	nonceStore  map[string]time.Time
	nonceWindow time.Duration
	log         *logrus.Logger
}

// NewMiddleware creates the signature-auth middleware
func NewMiddleware(log *logrus.Logger) *Middleware {
	return &Middleware{
		nonceStore:  make(map[string]time.Time),
		nonceWindow: 5 * time.Minute,
		log:         log,
	}
}

// RequireAuth rejects requests without a valid signature token and puts
// the recovered address into the context as "user_address".
func (am *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "AUTH_HEADER_MISSING",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format",
				"code":  "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		address, err := am.verifySignatureToken(token)
		if err != nil {
			am.log.WithError(err).Warn("Authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed",
				"code":  "AUTH_FAILED",
			})
			c.Abort()
			return
		}

		c.Set("user_address", address)
		c.Next()
	}
}

// verifySignatureToken checks a token of the form
// "signature:nonce:timestamp:address" and returns the verified address.
func (am *Middleware) verifySignatureToken(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid token format")
	}

	signature := parts[0]
	nonce := parts[1]
	timestampStr := parts[2]
	address := parts[3]

	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address format")
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp")
	}

	now := time.Now()
	issued := time.Unix(timestamp, 0)
	if now.Sub(issued) > maxTokenAge || issued.Sub(now) > maxClockSkew {
		return "", fmt.Errorf("timestamp out of valid range")
	}

	am.mu.Lock()
	if lastUsed, exists := am.nonceStore[nonce]; exists && time.Since(lastUsed) < am.nonceWindow {
		am.mu.Unlock()
		return "", fmt.Errorf("nonce already used")
	}
	am.mu.Unlock()

	message := fmt.Sprintf(messageFormat, nonce, timestamp)
	if err := verifyEthereumSignature(message, signature, address); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	am.mu.Lock()
	am.nonceStore[nonce] = time.Now()
	am.cleanupExpiredNoncesLocked()
	am.mu.Unlock()

	return address, nil
}

// verifyEthereumSignature recovers the signer of an EIP-191 prefixed
// message and compares it to the expected address
func verifyEthereumSignature(message, signature, expectedAddress string) error {
	signature = strings.TrimPrefix(signature, "0x")

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding")
	}
	if len(sigBytes) != 65 {
		return fmt.Errorf("invalid signature length")
	}

	// wallets emit V as 27/28, SigToPub wants 0/1
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	prefixedMessage := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixedMessage))

	pubKey, err := crypto.SigToPub(hash.Bytes(), sigBytes)
	if err != nil {
		return fmt.Errorf("failed to recover public key")
	}

	recoveredAddress := crypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recoveredAddress.Hex(), expectedAddress) {
		return fmt.Errorf("signature address mismatch")
	}

	return nil
}

// cleanupExpiredNoncesLocked drops nonces past the replay window.
// Callers hold am.mu.
func (am *Middleware) cleanupExpiredNoncesLocked() {
	now := time.Now()
	for nonce, timestamp := range am.nonceStore {
		if now.Sub(timestamp) > am.nonceWindow {
			delete(am.nonceStore, nonce)
		}
	}
}

// SecurityHeaders middleware adds security headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// SecureCORS only reflects whitelisted origins
func SecureCORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
