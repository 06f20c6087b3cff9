package auth

import (
	"fmt"
	"log"
	"time"

	"timetable-backend/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type JWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	DepartmentID *uint  `json:"department_id,omitempty"`
	TeacherID    *uint  `json:"teacher_id,omitempty"`
	StudentID    *uint  `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// Can reports whether the token's role grants perm.
func (c *JWTClaims) Can(perm string) bool {
	return c != nil && HasPermission(c.Role, perm)
}

type JWTService struct {
	secretKey string
	expiry    int // hours
}

func NewJWTService(secretKey string, expiry int) *JWTService {
	return &JWTService{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

func CheckPassword(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func (j *JWTService) GenerateToken(user *models.User) (string, error) {
	expiryTime := time.Now().Add(time.Hour * time.Duration(j.expiry))

	claims := JWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		TeacherID:    user.TeacherID,
		StudentID:    user.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiryTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   user.Email,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		log.Printf("❌ Error generating token: %v", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

func (j *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
