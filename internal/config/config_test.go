package config

import (
	"testing"

	"werewolf-party/internal/record"
)

func TestParseRosters(t *testing.T) {
	rosters, err := ParseRosters([]byte("duel: [werewolf, seer]\nfamily:\n  - villager\n  - little-girl\n"))
	if err != nil {
		t.Fatalf("expected rosters, got %v", err)
	}
	duel := rosters["duel"]
	if len(duel) != 2 || duel[0] != record.RoleWerewolf || duel[1] != record.RoleSeer {
		t.Fatalf("expected werewolf, seer; got %v", duel)
	}
	if got := rosters["family"]; len(got) != 2 || got[1] != record.RoleLittleGirl {
		t.Fatalf("expected family roster, got %v", got)
	}
}

func TestParseRostersRejectsUnknownRole(t *testing.T) {
	if _, err := ParseRosters([]byte("odd: [werewolf, dragon]\n")); err == nil {
		t.Fatalf("expected unknown role error")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VOTE_MS", "1200")
	t.Setenv("WAKE_DELAY_MS", "-5")
	t.Setenv("CLIENT_MSG_RATE", "7.5")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.VoteMS != 1200 {
		t.Fatalf("expected vote 1200, got %d", cfg.VoteMS)
	}
	if cfg.WakeDelayMS != Default().WakeDelayMS {
		t.Fatalf("expected invalid wake delay ignored, got %d", cfg.WakeDelayMS)
	}
	if cfg.ClientMsgRate != 7.5 {
		t.Fatalf("expected rate 7.5, got %v", cfg.ClientMsgRate)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(t.TempDir() + "/.env"); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}
