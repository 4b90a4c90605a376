package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

const header = "成員,分組,所屬勢力,戰功總量,勢力值,貢獻排行\n"

func snapshotName(day, hour int) string {
	return fmt.Sprintf("同盟統計2025年03月%02d日%02d時00分00秒.csv", day, hour)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCSVStoreLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a snapshot directory", t, func() {
		dir := t.TempDir()

		Convey("When it holds two well-formed files", func() {
			writeFile(t, dir, snapshotName(2, 9), header+
				"alice,一隊,北境,\"12,000\",4000,1\n"+
				"bob,二隊,南境,3000,0,2\n")
			writeFile(t, dir, snapshotName(1, 9), header+
				"alice,一隊,北境,10000,4000,1\n")

			res, err := NewCSVStore(dir).Load(ctx)

			Convey("Then every row should be loaded in time order", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 3)
				So(len(res.Files), ShouldEqual, 2)
				So(len(res.Skipped), ShouldEqual, 0)
				So(res.Dataset[0].RecordedAt, ShouldEqual, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
				So(res.Dataset[2].RecordedAt, ShouldEqual, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))
			})

			Convey("Then numbers and efficiency should be normalized", func() {
				latest := res.Dataset.Latest()
				So(latest[0].MemberID, ShouldEqual, "alice")
				So(latest[0].Merit, ShouldEqual, 12000)
				So(latest[0].Efficiency, ShouldEqual, 3)
				So(latest[0].Region, ShouldEqual, "北境")
				So(latest[0].SourceFile, ShouldEqual, snapshotName(2, 9))

				So(latest[1].Power, ShouldEqual, 0)
				So(latest[1].Efficiency, ShouldEqual, 3000)
				So(latest[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When one filename has no timestamp", func() {
			writeFile(t, dir, snapshotName(1, 9), header+"alice,一隊,北境,100,2000,1\n")
			writeFile(t, dir, "export-final.csv", header+"mallory,一隊,北境,999,1,1\n")

			res, err := NewCSVStore(dir).Load(ctx)

			Convey("Then only the well-formed file should contribute", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 1)
				So(res.Dataset[0].MemberID, ShouldEqual, "alice")
				So(len(res.Skipped), ShouldEqual, 1)
				So(res.Skipped[0].File, ShouldEqual, "export-final.csv")
				So(errors.Is(&res.Skipped[0], ErrInvalidFilename), ShouldBeTrue)
			})
		})

		Convey("When the only file lacks a power column", func() {
			writeFile(t, dir, snapshotName(1, 9), "成員,分組,戰功總量\nalice,一隊,100\nbob,一隊,200\n")

			res, err := NewCSVStore(dir).Load(ctx)

			Convey("Then a schema error should name the column", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrSchema), ShouldBeTrue)

				var serr *SchemaError
				So(errors.As(err, &serr), ShouldBeTrue)
				So(serr.Missing, ShouldResemble, []string{"power"})
				So(serr.Present, ShouldResemble, []string{"成員", "分組", "戰功總量"})
				So(len(serr.Sample), ShouldEqual, 2)
			})

			Convey("Then the dataset should be empty, not nil", func() {
				So(res.Dataset, ShouldNotBeNil)
				So(len(res.Dataset), ShouldEqual, 0)
			})
		})

		Convey("When a schema-broken file sits next to a good one", func() {
			writeFile(t, dir, snapshotName(1, 9), "成員,分組,戰功總量\nalice,一隊,100\n")
			writeFile(t, dir, snapshotName(2, 9), header+"alice,一隊,北境,200,2000,1\n")

			res, err := NewCSVStore(dir).Load(ctx)

			Convey("Then the good file should load and the bad one be skipped", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 1)
				So(len(res.Skipped), ShouldEqual, 1)
				So(res.Skipped[0].Missing, ShouldResemble, []string{"power"})
			})
		})

		Convey("When the directory does not exist", func() {
			res, err := NewCSVStore(filepath.Join(dir, "missing")).Load(ctx)

			Convey("Then the result should be empty without error", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 0)
			})
		})

		Convey("When rows belong to excluded groups", func() {
			writeFile(t, dir, snapshotName(1, 9), header+
				"alice,一隊,北境,100,2000,1\n"+
				"alt,小號,北境,5,10,2\n"+
				"drifter,未分組,北境,1,10,3\n")

			res, err := NewCSVStore(dir, WithExcludedGroups([]string{"小號", "未分組"})).Load(ctx)

			Convey("Then they should be dropped", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 1)
				So(res.Dataset[0].MemberID, ShouldEqual, "alice")
			})
		})

		Convey("When values are malformed and ranks are missing", func() {
			writeFile(t, dir, snapshotName(1, 9), "member,group,merit,power\n"+
				"a,g,oops,100\n"+
				"b,g,\"1,500\",n/a\n"+
				",g,900,100\n"+
				"c,g,800,100\n")

			res, err := NewCSVStore(dir).Load(ctx)

			Convey("Then bad numbers become zero and ranks follow merit", func() {
				So(err, ShouldBeNil)
				So(len(res.Dataset), ShouldEqual, 3)

				byID := map[string]int{}
				for i, s := range res.Dataset {
					byID[s.MemberID] = i
				}
				So(res.Dataset[byID["a"]].Merit, ShouldEqual, 0)
				So(res.Dataset[byID["b"]].Merit, ShouldEqual, 1500)
				So(res.Dataset[byID["b"]].Power, ShouldEqual, 0)
				So(res.Dataset[byID["b"]].Rank, ShouldEqual, 1)
				So(res.Dataset[byID["c"]].Rank, ShouldEqual, 2)
				So(res.Dataset[byID["a"]].Rank, ShouldEqual, 3)
			})
		})
	})
}

func TestCSVStoreEncodings(t *testing.T) {
	ctx := context.Background()
	body := header + "阿明,一隊,北境,1000,500,1\n"

	Convey("Given snapshot files in different encodings", t, func() {
		dir := t.TempDir()

		Convey("When the file is UTF-8 with a byte order mark", func() {
			writeFile(t, dir, snapshotName(1, 9), "\ufeff"+body)
			res, err := NewCSVStore(dir).Load(ctx)

			So(err, ShouldBeNil)
			So(len(res.Dataset), ShouldEqual, 1)
			So(res.Dataset[0].MemberID, ShouldEqual, "阿明")
		})

		Convey("When the file is Big5", func() {
			enc, err := traditionalchinese.Big5.NewEncoder().String(body)
			So(err, ShouldBeNil)
			writeFile(t, dir, snapshotName(1, 9), enc)

			res, err := NewCSVStore(dir).Load(ctx)
			So(err, ShouldBeNil)
			So(len(res.Dataset), ShouldEqual, 1)
			So(res.Dataset[0].MemberID, ShouldEqual, "阿明")
			So(res.Dataset[0].Group, ShouldEqual, "一隊")
		})

		Convey("When the file is GBK with simplified headers", func() {
			simplified := "成员,分组,所属势力,战功总量,势力值,贡献排行\n阿明,一队,北境,1000,500,1\n"
			enc, err := simplifiedchinese.GBK.NewEncoder().String(simplified)
			So(err, ShouldBeNil)
			writeFile(t, dir, snapshotName(1, 9), enc)

			res, err := NewCSVStore(dir).Load(ctx)
			So(err, ShouldBeNil)
			So(len(res.Dataset), ShouldEqual, 1)
			So(res.Dataset[0].Group, ShouldEqual, "一队")
			So(res.Dataset[0].Merit, ShouldEqual, 1000)
		})

		Convey("When the file is UTF-16 with a byte order mark", func() {
			enc, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(body)
			So(err, ShouldBeNil)
			writeFile(t, dir, snapshotName(1, 9), enc)

			res, err := NewCSVStore(dir).Load(ctx)
			So(err, ShouldBeNil)
			So(len(res.Dataset), ShouldEqual, 1)
			So(res.Dataset[0].Power, ShouldEqual, 500)
		})

		Convey("When the bytes decode under no supported encoding", func() {
			writeFile(t, dir, snapshotName(1, 9), string([]byte{0xff, 0xff, 0xff, 0x80, 0x80}))

			res, err := NewCSVStore(dir).Load(ctx)
			So(err, ShouldBeNil)
			So(len(res.Dataset), ShouldEqual, 0)
			So(len(res.Skipped), ShouldEqual, 1)
			So(errors.Is(&res.Skipped[0], ErrParse), ShouldBeTrue)
		})
	})
}

func TestCSVStoreSaveAndFingerprint(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		dir := filepath.Join(t.TempDir(), "snapshots")
		store := NewCSVStore(dir)

		Convey("Then a missing directory should fingerprint to zero", func() {
			fp, err := store.Fingerprint(ctx)
			So(err, ShouldBeNil)
			So(fp, ShouldEqual, 0)
		})

		Convey("When saving an upload with a path in its name", func() {
			name, err := store.Save(ctx, `C:\Users\me\..\`+snapshotName(1, 9), []byte(header+"a,g,r,1,1,1\n"))

			Convey("Then only the base name should be used", func() {
				So(err, ShouldBeNil)
				So(name, ShouldEqual, snapshotName(1, 9))
				_, statErr := os.Stat(filepath.Join(dir, name))
				So(statErr, ShouldBeNil)
			})

			Convey("Then Has should find it by the original name", func() {
				ok, err := store.Has(ctx, snapshotName(1, 9))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				ok, err = store.Has(ctx, snapshotName(3, 9))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then no temp file should be left behind", func() {
				entries, _ := os.ReadDir(dir)
				So(len(entries), ShouldEqual, 1)
			})

			Convey("Then the fingerprint should change on the next save", func() {
				before, err := store.Fingerprint(ctx)
				So(err, ShouldBeNil)
				So(before, ShouldNotEqual, 0)

				_, err = store.Save(ctx, snapshotName(2, 9), []byte(header+"a,g,r,2,1,1\n"))
				So(err, ShouldBeNil)

				after, err := store.Fingerprint(ctx)
				So(err, ShouldBeNil)
				So(after, ShouldNotEqual, before)
			})
		})

		Convey("When saving a file that is not a csv", func() {
			_, err := store.Save(ctx, "同盟統計2025年03月01日09時00分00秒.xlsx", []byte("x"))
			So(errors.Is(err, ErrNotCSV), ShouldBeTrue)
		})

		Convey("When saving a file without a timestamp", func() {
			_, err := store.Save(ctx, "members.csv", []byte("x"))
			So(errors.Is(err, ErrInvalidFilename), ShouldBeTrue)
		})

		Convey("When saving a hidden file name", func() {
			_, err := store.Save(ctx, ".."+string(filepath.Separator), []byte("x"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseTimestamp(t *testing.T) {
	Convey("Given snapshot filenames", t, func() {
		Convey("Then both hour markers should parse", func() {
			a, err := ParseTimestamp("同盟統計2025年11月25日21时24分54秒.csv", nil)
			So(err, ShouldBeNil)
			b, err := ParseTimestamp("同盟統計2025年11月25日21時24分54秒.csv", nil)
			So(err, ShouldBeNil)
			So(a, ShouldEqual, b)
			So(a, ShouldEqual, time.Date(2025, 11, 25, 21, 24, 54, 0, time.UTC))
		})

		Convey("Then the configured location should apply", func() {
			loc := time.FixedZone("UTC+8", 8*3600)
			ts, err := ParseTimestamp(snapshotName(1, 9), loc)
			So(err, ShouldBeNil)
			So(ts.Location(), ShouldEqual, loc)
			So(ts.Hour(), ShouldEqual, 9)
		})

		Convey("Then impossible dates should be rejected", func() {
			_, err := ParseTimestamp("同盟統計2025年13月01日09時00分00秒.csv", nil)
			So(errors.Is(err, ErrInvalidFilename), ShouldBeTrue)
		})

		Convey("Then names without the pattern should be rejected", func() {
			_, err := ParseTimestamp("2025-03-01.csv", nil)
			So(errors.Is(err, ErrInvalidFilename), ShouldBeTrue)
		})
	})
}

func TestMapColumns(t *testing.T) {
	Convey("Given header rows with aliases", t, func() {
		Convey("Then padded and English names should resolve", func() {
			m := mapColumns([]string{" \ufeffMember ", "GROUP", "Faction", "merit", "Power", "Rank"})
			So(m.missing(), ShouldBeEmpty)
			So(m.index[FieldRegion], ShouldEqual, 2)
			So(m.index[FieldRank], ShouldEqual, 5)
		})

		Convey("Then a region named 勢力 should not be taken for power", func() {
			m := mapColumns([]string{"成員", "分組", "勢力", "戰功"})
			So(strings.Join(m.missing(), ","), ShouldEqual, "power")
			So(m.index[FieldRegion], ShouldEqual, 2)
		})
	})
}
