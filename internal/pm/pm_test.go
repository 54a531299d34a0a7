package pm

import "testing"

func TestLockfileNameByManager(t *testing.T) {
	cases := map[Manager]string{
		NPM:  "package-lock.json",
		Yarn: "yarn.lock",
		PNPM: "pnpm-lock.yaml",
	}
	for manager, want := range cases {
		if got := manager.LockfileName(); got != want {
			t.Errorf("%s.LockfileName() = %q, want %q", manager, got, want)
		}
	}
}

func TestViewArgsUsesInfoForYarn(t *testing.T) {
	got := Yarn.ViewArgs("chalk")
	want := []string{"info", "chalk", "--json"}
	if len(got) != len(want) {
		t.Fatalf("ViewArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ViewArgs = %v, want %v", got, want)
		}
	}
}

func TestViewArgsUsesViewForNPMAndPNPM(t *testing.T) {
	for _, manager := range []Manager{NPM, PNPM} {
		got := manager.ViewArgs("chalk")
		want := []string{"view", "chalk", "--json"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s.ViewArgs = %v, want %v", manager, got, want)
			}
		}
	}
}
