package data

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrLabelChoice is returned when LoadLabels2 is not asked for exactly one
// of countries or families.
var ErrLabelChoice = errors.New("one of countries OR families must be true")

// Each loader keeps only its most recent result, so repeated loads of the
// same directory during one run hit disk once.
var (
	trainingCache = mustCache(1)
	testingCache  = mustCache(1)
	metadataCache = mustCache(1)
)

func mustCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return c
}

// PurgeCaches drops every cached load.
func PurgeCaches() {
	trainingCache.Purge()
	testingCache.Purge()
	metadataCache.Purge()
}

// Split is the features and labels of one partition.
type Split struct {
	// Features is samples x nodes.
	Features *tensor.Dense
	// Labels holds one log2 MIC per sample.
	Labels *tensor.Dense
	// Convolved marks features that were stored pre-convolved.
	Convolved bool
}

// LoadTrainingData reads training_features.npy and training_labels.npy from
// dataDir. With k > 0, features come from <k>_convolved_training_features.npy.
func LoadTrainingData(dataDir string, k int) (*Split, error) {
	return loadSplit(trainingCache, dataDir, "training", k)
}

// LoadTestingData is LoadTrainingData for the testing partition.
func LoadTestingData(dataDir string, k int) (*Split, error) {
	return loadSplit(testingCache, dataDir, "testing", k)
}

func loadSplit(cache *lru.Cache, dataDir, prefix string, k int) (*Split, error) {
	key := fmt.Sprintf("%s|%d", dataDir, k)
	if v, ok := cache.Get(key); ok {
		return v.(*Split), nil
	}

	featuresFile := fmt.Sprintf("%s_features.npy", prefix)
	if k > 0 {
		featuresFile = fmt.Sprintf("%d_convolved_%s_features.npy", k, prefix)
	}
	features, err := ReadNpy(filepath.Join(dataDir, featuresFile))
	if err != nil {
		return nil, err
	}
	if features.Shape().Dims() != 2 {
		return nil, errors.Errorf("%s: expected samples x nodes, got shape %v", featuresFile, features.Shape())
	}
	labels, err := ReadNpy(filepath.Join(dataDir, fmt.Sprintf("%s_labels.npy", prefix)))
	if err != nil {
		return nil, err
	}

	s := &Split{Features: features, Labels: labels, Convolved: k > 0}
	cache.Add(key, s)
	return s, nil
}

// Metadata is one isolate row of training_metadata.csv / testing_metadata.csv.
// Unknown columns are ignored.
type Metadata struct {
	Isolate string `csv:"isolate"`
	Country string `csv:"country"`
	Family  string `csv:"family"`
	Year    string `csv:"year"`
	AZM     string `csv:"azm_mic"`
	CFX     string `csv:"cfx_mic"`
	CIP     string `csv:"cip_mic"`
	CRO     string `csv:"cro_mic"`
}

type metadataPair struct {
	training, testing []*Metadata
}

// LoadMetadata reads the training and testing metadata tables.
func LoadMetadata(dataDir string) ([]*Metadata, []*Metadata, error) {
	if v, ok := metadataCache.Get(dataDir); ok {
		p := v.(metadataPair)
		return p.training, p.testing, nil
	}
	training, err := readMetadata(filepath.Join(dataDir, "training_metadata.csv"))
	if err != nil {
		return nil, nil, err
	}
	testing, err := readMetadata(filepath.Join(dataDir, "testing_metadata.csv"))
	if err != nil {
		return nil, nil, err
	}
	metadataCache.Add(dataDir, metadataPair{training: training, testing: testing})
	return training, testing, nil
}

func readMetadata(path string) ([]*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var rows []*Metadata
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return rows, nil
}

// LoadLabels2 reads the one-hot country or family labels of both partitions
// and converts every row to a class index.
func LoadLabels2(dataDir string, countries, families bool) ([]int, []int, error) {
	if countries == families {
		return nil, nil, ErrLabelChoice
	}
	name := "countries"
	if families {
		name = "families"
	}

	load := func(prefix string) ([]int, error) {
		path := filepath.Join(dataDir, fmt.Sprintf("%s_%s.npy", prefix, name))
		t, err := ReadNpy(path)
		if err != nil {
			return nil, err
		}
		idx, err := ArgmaxRows(t)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		return idx, nil
	}

	training, err := load("training")
	if err != nil {
		return nil, nil, err
	}
	testing, err := load("testing")
	if err != nil {
		return nil, nil, err
	}
	return training, testing, nil
}
