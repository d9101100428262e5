package profiles_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/pkg/utils/try"
)

func TestVerify(t *testing.T) {
	type When struct {
		profile profiles.TrellisProfile
	}
	type Then struct {
		ok bool
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			err := when.profile.Verify()
			if then.ok {
				if err != nil {
					t.Errorf("expected valid, actual: %v", err)
				}
				return
			}
			if !errors.Is(err, profiles.ErrProfileInvalid) {
				t.Errorf("expected ErrProfileInvalid, actual: %v", err)
			}
		}
	}

	valid := profiles.TrellisProfile{
		ApiRoot: "https://api.trellis.invalid/api",
		Account: "123456789012",
		Region:  "ap-northeast-1",
	}

	t.Run("a profile with apiRoot, account and region is valid", theory(
		When{profile: valid}, Then{ok: true},
	))
	t.Run("apiRoot must be an absolute URL", theory(
		When{profile: profiles.TrellisProfile{
			ApiRoot: "not a url, really", Account: valid.Account, Region: valid.Region,
		}},
		Then{ok: false},
	))
	t.Run("account is required", theory(
		When{profile: profiles.TrellisProfile{
			ApiRoot: valid.ApiRoot, Region: valid.Region,
		}},
		Then{ok: false},
	))
	t.Run("region is required", theory(
		When{profile: profiles.TrellisProfile{
			ApiRoot: valid.ApiRoot, Account: valid.Account,
		}},
		Then{ok: false},
	))
	t.Run("cert.ca must be base64 encoded PEM when given", theory(
		When{profile: profiles.TrellisProfile{
			ApiRoot: valid.ApiRoot, Account: valid.Account, Region: valid.Region,
			Cert: profiles.TrellisCert{CA: "bm90IHBlbQ=="},
		}},
		Then{ok: false},
	))
}

func TestProfileStore(t *testing.T) {
	t.Run("a saved store can be loaded back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "profile")

		store := profiles.ProfileStore{
			"default": &profiles.TrellisProfile{
				ApiRoot: "https://api.trellis.invalid/api",
				Account: "123456789012",
				Region:  "ap-northeast-1",
			},
			"staging": &profiles.TrellisProfile{
				ApiRoot: "https://staging.trellis.invalid/api",
				Account: "210987654321",
				Region:  "us-west-2",
			},
		}
		if err := store.Save(path); err != nil {
			t.Fatal(err)
		}

		loaded := try.To(profiles.LoadProfileStore(path)).OrFatal(t)
		if len(loaded) != 2 {
			t.Fatalf("expected 2 profiles, actual: %d", len(loaded))
		}
		for name, want := range store {
			actual, ok := loaded[name]
			if !ok {
				t.Errorf("profile %s is lost", name)
				continue
			}
			if actual.ApiRoot != want.ApiRoot || actual.Account != want.Account || actual.Region != want.Region {
				t.Errorf("profile %s: expected: %+v, actual: %+v", name, want, actual)
			}
		}
	})

	t.Run("the saved file is not readable by group and others", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile")

		store := profiles.ProfileStore{}
		if err := store.Save(path); err != nil {
			t.Fatal(err)
		}

		stat, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if mode := stat.Mode().Perm(); mode&0077 != 0 {
			t.Errorf("file is too open: %v", mode)
		}
	})

	t.Run("loading a missing store is ErrProfileStoreNotFound", func(t *testing.T) {
		_, err := profiles.LoadProfileStore(filepath.Join(t.TempDir(), "no-such-file"))
		if !errors.Is(err, profiles.ErrProfileStoreNotFound) {
			t.Errorf("expected ErrProfileStoreNotFound, actual: %v", err)
		}
	})

	t.Run("saving over an existing store replaces it", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile")

		first := profiles.ProfileStore{
			"default": &profiles.TrellisProfile{
				ApiRoot: "https://api.trellis.invalid/api",
				Account: "123456789012",
				Region:  "ap-northeast-1",
			},
		}
		if err := first.Save(path); err != nil {
			t.Fatal(err)
		}

		second := profiles.ProfileStore{
			"default": &profiles.TrellisProfile{
				ApiRoot: "https://api2.trellis.invalid/api",
				Account: "123456789012",
				Region:  "ap-northeast-1",
			},
		}
		if err := second.Save(path); err != nil {
			t.Fatal(err)
		}

		loaded := try.To(profiles.LoadProfileStore(path)).OrFatal(t)
		if loaded["default"].ApiRoot != "https://api2.trellis.invalid/api" {
			t.Errorf("store is not updated: %+v", loaded["default"])
		}
	})
}
