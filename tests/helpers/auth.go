// auth.go
//
// Field-level content versioning engine for web content management platforms
//
// This file is part of revisiondb.
// revisiondb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// revisiondb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with revisiondb.
// If not, see <https://www.gnu.org/licenses/>.

package helpers

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/authorizerdev/authorizer-go"
)

const (
	pwLower   = "abcdefghijklmnopqrstuvwxyz"
	pwUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	pwDigits  = "0123456789"
	pwSpecial = "!@#$%^&*"
	pwAll     = pwLower + pwUpper + pwDigits + pwSpecial
)

func randIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// GeneratePassword returns a 10 character password satisfying the
// authorizer's complexity rules (upper, digit, special).
func GeneratePassword() string {
	pw := make([]byte, 10)
	pw[0] = pwUpper[randIndex(len(pwUpper))]
	pw[1] = pwDigits[randIndex(len(pwDigits))]
	pw[2] = pwSpecial[randIndex(len(pwSpecial))]
	for i := 3; i < len(pw); i++ {
		pw[i] = pwAll[randIndex(len(pwAll))]
	}
	for i := range pw {
		j := randIndex(len(pw))
		pw[i], pw[j] = pw[j], pw[i]
	}
	return string(pw)
}

// AcquireAccount signs the account up with the given roles, then logs in and
// returns the access token. An existing account is tolerated so tests can be
// re-run against a warm authorizer.
func AcquireAccount(t *testing.T, authzURL, email, password string, roles []string) string {
	client, err := authorizer.NewAuthorizerClient("test_client", authzURL, "", nil)
	if err != nil {
		t.Fatalf("Failed to create authorizer client: %v", err)
	}

	rolePtrs := make([]*string, len(roles))
	for i := range roles {
		rolePtrs[i] = &roles[i]
	}

	if _, err = client.SignUp(&authorizer.SignUpInput{
		Email:           &email,
		Password:        password,
		ConfirmPassword: password,
		Roles:           rolePtrs,
	}); err != nil {
		t.Logf("Signup failed (account may already exist): %v", err)
	}

	res, err := client.Login(&authorizer.LoginInput{
		Email:    &email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.AccessToken == nil {
		t.Fatal("Access token is nil")
	}
	return *res.AccessToken
}
