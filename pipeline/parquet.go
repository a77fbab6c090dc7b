package pipeline

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type alignedParquetRow struct {
	Distance     float64 `parquet:"name=distance, type=DOUBLE"`
	ReferenceKph float64 `parquet:"name=reference_speed_kph, type=DOUBLE"`
	CompareKph   float64 `parquet:"name=compare_speed_kph, type=DOUBLE"`
	DeltaS       float64 `parquet:"name=delta_s, type=DOUBLE"`
}

func writeAlignedParquet(path string, samples []AlignedSample) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(alignedParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range samples {
		row := alignedParquetRow{
			Distance:     s.Distance,
			ReferenceKph: s.ReferenceKph,
			CompareKph:   s.CompareKph,
			DeltaS:       s.DeltaS,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
